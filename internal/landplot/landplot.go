// Package landplot decodes land-parcel spreadsheets uploaded by users.
package landplot

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// xlsxMime is the only accepted upload content type.
const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Plot is one land parcel row. All fields are optional; a missing or
// unknown column leaves the field nil.
type Plot struct {
	PlotID                 *string  `json:"plotId,omitempty"`
	Purpose                *string  `json:"purpose,omitempty"`
	Area                   *float64 `json:"area,omitempty"`
	CadastralNumber        *string  `json:"cadastralNumber,omitempty"`
	Project                *string  `json:"project,omitempty"`
	CrossAnalysisField2    *string  `json:"crossAnalysisField2,omitempty"`
	GenplanID              *string  `json:"genplanId,omitempty"`
	GenplanZone            *string  `json:"genplanZone,omitempty"`
	GenplanZoneNumber      *string  `json:"genplanZoneNumber,omitempty"`
	GenplanPlanID          *string  `json:"genplanPlanId,omitempty"`
	OknID                  *string  `json:"oknId,omitempty"`
	Okn                    *string  `json:"okn,omitempty"`
	ZoningID               *string  `json:"zoningId,omitempty"`
	Zoning                 *string  `json:"zoning,omitempty"`
	ZoningHeightRestrict   *string  `json:"zoningHeightRestriction,omitempty"`
	IcgfoID                *string  `json:"icgfoId,omitempty"`
	Icgfo                  *string  `json:"icgfo,omitempty"`
	PptID                  *string  `json:"pptId,omitempty"`
	Ppt                    *string  `json:"ppt,omitempty"`
	OknTerritoryID         *string  `json:"oknTerritoryId,omitempty"`
	OknTerritory           *string  `json:"oknTerritory,omitempty"`
	CrossAnalysisField1    *string  `json:"crossAnalysisField1,omitempty"`
	RecreationalComplexID  *string  `json:"recreationalComplexId,omitempty"`
	RecreationalComplex    *string  `json:"recreationalComplex,omitempty"`
	PzzSubzoneID           *string  `json:"pzzSubzoneId,omitempty"`
	PzzSubzone             *string  `json:"pzzSubzone,omitempty"`
	PzzSubzoneAbbreviation *string  `json:"pzzSubzoneShort,omitempty"`
	PzzID                  *string  `json:"pzzId,omitempty"`
	Pzz                    *string  `json:"pzz,omitempty"`
}

// Service parses uploaded workbooks into plots.
type Service struct {
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Parse decodes an uploaded spreadsheet. Inputs that are empty, not an
// XLSX workbook, or unparseable yield an empty list, never an error.
func (s *Service) Parse(name, mime string, data []byte) []Plot {
	if len(data) == 0 {
		s.logger.Warn("uploaded file is empty", zap.String("file", name))
		return nil
	}
	if mime != xlsxMime {
		s.logger.Warn("uploaded file is not an XLSX workbook",
			zap.String("file", name),
			zap.String("mime", mime),
		)
		return nil
	}

	plots, err := readWorkbook(data)
	if err != nil {
		s.logger.Error("workbook parse failed", zap.String("file", name), zap.Error(err))
		return nil
	}
	s.logger.Info("land plots parsed", zap.String("file", name), zap.Int("count", len(plots)))
	return plots
}

// ImportText parses an upload and renders the result for chat
// delivery. It satisfies the conversational importer contract.
func (s *Service) ImportText(name, mime string, data []byte) (string, error) {
	return RenderText(s.Parse(name, mime, data)), nil
}

func readWorkbook(data []byte) ([]Plot, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		columns[strings.TrimSpace(cell)] = i
	}

	plots := make([]Plot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		plots = append(plots, Plot{
			PlotID:                 cellString(row, columns, "fid"),
			Purpose:                cellString(row, columns, "ВРИ"),
			Area:                   cellFloat(row, columns, "Площадь"),
			CadastralNumber:        cellString(row, columns, "Кадастровый номер"),
			Project:                cellString(row, columns, "Проект"),
			CrossAnalysisField2:    cellString(row, columns, "Участки на кросс анализ_field_2"),
			GenplanID:              cellString(row, columns, "Genplan_fid"),
			GenplanZone:            cellString(row, columns, "Genplan_Генплан"),
			GenplanZoneNumber:      cellString(row, columns, "Genplan_Номер зоны Генплана"),
			GenplanPlanID:          cellString(row, columns, "Genplan_ID Генплана"),
			OknID:                  cellString(row, columns, "ОКН_fid"),
			Okn:                    cellString(row, columns, "ОКН_ОКН"),
			ZoningID:               cellString(row, columns, "ЗРЗ_fid"),
			Zoning:                 cellString(row, columns, "ЗРЗ_ЗРЗ"),
			ZoningHeightRestrict:   cellString(row, columns, "ЗРЗ_Ограничение высоты"),
			IcgfoID:                cellString(row, columns, "ИЦГФО_fid"),
			Icgfo:                  cellString(row, columns, "ИЦГФО_ИЦГФО"),
			PptID:                  cellString(row, columns, "ППТ и ППиМТ_fid"),
			Ppt:                    cellString(row, columns, "ППТ и ППиМТ_ППТ"),
			OknTerritoryID:         cellString(row, columns, "Территория ОКН_fid"),
			OknTerritory:           cellString(row, columns, "Территория ОКН_Территория ОКН"),
			CrossAnalysisField1:    cellString(row, columns, "Участки на кросс анализ_field_1"),
			RecreationalComplexID:  cellString(row, columns, "Природно-рекреационный комплекс_fid"),
			RecreationalComplex:    cellString(row, columns, "Природно-рекреационный комплекс_Природно-рекреационный комплекс"),
			PzzSubzoneID:           cellString(row, columns, "Подзоны ПЗЗ_fid"),
			PzzSubzone:             cellString(row, columns, "Подзоны ПЗЗ_Подзона ПЗЗ"),
			PzzSubzoneAbbreviation: cellString(row, columns, "Подзоны ПЗЗ_Сокращение подзоны ПЗЗ"),
			PzzID:                  cellString(row, columns, "ПЗЗ_fid"),
			Pzz:                    cellString(row, columns, "ПЗЗ_ПЗЗ"),
		})
	}
	return plots, nil
}

func cellString(row []string, columns map[string]int, name string) *string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return nil
	}
	v := strings.TrimSpace(row[idx])
	if v == "" {
		return nil
	}
	return &v
}

func cellFloat(row []string, columns map[string]int, name string) *float64 {
	s := cellString(row, columns, name)
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(*s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// RenderText builds the user-facing summary of parsed plots.
func RenderText(plots []Plot) string {
	if len(plots) == 0 {
		return "Не удалось загрузить или распознать данные земельных участков."
	}
	var b strings.Builder
	b.WriteString("Загруженные земельные участки:\n")
	for _, p := range plots {
		b.WriteString("---------------\n")
		fmt.Fprintf(&b, "• ID участка: %s\n", orDash(p.PlotID))
		fmt.Fprintf(&b, "• Назначение: %s\n", orDash(p.Purpose))
		fmt.Fprintf(&b, "• Площадь (м²): %s\n", floatOrDash(p.Area))
		fmt.Fprintf(&b, "• Кадастровый номер: %s\n", orDash(p.CadastralNumber))
		fmt.Fprintf(&b, "• Проект: %s\n", orDash(p.Project))
	}
	return b.String()
}

func orDash(s *string) string {
	if s == nil {
		return "—"
	}
	return *s
}

func floatOrDash(f *float64) string {
	if f == nil {
		return "—"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
