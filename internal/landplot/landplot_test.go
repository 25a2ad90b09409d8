package landplot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseMapsColumnsByHeaderName(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, [][]interface{}{
		{"Кадастровый номер", "fid", "Площадь", "ВРИ", "Проект", "ПЗЗ_ПЗЗ"},
		{"16:50:011", "42", "1250.5", "Образование", "Школа-2026", "Ж-3"},
		{"", "43", "not-a-number", "", "Парк", ""},
	})

	s := NewService(zap.NewNop())
	plots := s.Parse("plots.xlsx", xlsxMime, data)
	require.Len(t, plots, 2)

	first := plots[0]
	require.NotNil(t, first.PlotID)
	assert.Equal(t, "42", *first.PlotID)
	require.NotNil(t, first.Area)
	assert.InDelta(t, 1250.5, *first.Area, 0.001)
	require.NotNil(t, first.CadastralNumber)
	assert.Equal(t, "16:50:011", *first.CadastralNumber)
	require.NotNil(t, first.Pzz)
	assert.Equal(t, "Ж-3", *first.Pzz)

	second := plots[1]
	assert.Nil(t, second.CadastralNumber)
	assert.Nil(t, second.Area)
	assert.Nil(t, second.Purpose)
	require.NotNil(t, second.Project)
	assert.Equal(t, "Парк", *second.Project)
}

func TestParseUnknownColumnsIgnored(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, [][]interface{}{
		{"fid", "Неизвестная колонка"},
		{"7", "что-то"},
	})

	s := NewService(zap.NewNop())
	plots := s.Parse("plots.xlsx", xlsxMime, data)
	require.Len(t, plots, 1)
	require.NotNil(t, plots[0].PlotID)
	assert.Equal(t, "7", *plots[0].PlotID)
	assert.Nil(t, plots[0].Purpose)
}

func TestParseRejectsWrongMime(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, [][]interface{}{{"fid"}, {"1"}})
	s := NewService(zap.NewNop())
	assert.Empty(t, s.Parse("plots.csv", "text/csv", data))
}

func TestParseRejectsEmptyOrBrokenData(t *testing.T) {
	t.Parallel()

	s := NewService(zap.NewNop())
	assert.Empty(t, s.Parse("plots.xlsx", xlsxMime, nil))
	assert.Empty(t, s.Parse("plots.xlsx", xlsxMime, []byte("not a workbook")))
}

func TestImportTextRendersSummary(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, [][]interface{}{
		{"fid", "ВРИ", "Площадь"},
		{"42", "Образование", "100"},
	})

	s := NewService(zap.NewNop())
	got, err := s.ImportText("plots.xlsx", xlsxMime, data)
	require.NoError(t, err)
	assert.Contains(t, got, "Загруженные земельные участки:\n")
	assert.Contains(t, got, "• ID участка: 42")
	assert.Contains(t, got, "• Назначение: Образование")
	assert.Contains(t, got, "• Площадь (м²): 100")
	assert.Contains(t, got, "• Кадастровый номер: —")
}

func TestImportTextEmptyUpload(t *testing.T) {
	t.Parallel()

	s := NewService(zap.NewNop())
	got, err := s.ImportText("plots.xlsx", "text/plain", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "Не удалось загрузить или распознать данные земельных участков.", got)
}
