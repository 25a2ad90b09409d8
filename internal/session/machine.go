package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/obscurecore/eduscan/internal/export"
	"github.com/obscurecore/eduscan/internal/institution"
	"github.com/obscurecore/eduscan/internal/metrics"
)

// Button labels and commands understood by the machine.
const (
	cmdMenu            = "/menu"
	buttonMainMenu     = "🏠 Главное меню"
	buttonScrape       = "📊 Скрапить учреждения"
	buttonUploadExcel  = "📥 Загрузить Excel LandPlot"
	buttonExtractPdf   = "🖼 Извлечь PDF изображения"
	buttonFormatText   = "Текст"
	buttonFormatExcel  = "Excel"
	buttonDone         = "Готово"
	selectedMarkPrefix = "✔️ "
)

// Keyboard tags tell the front end which reply keyboard to attach.
type Keyboard int

// Reply keyboards.
const (
	KeyboardNone Keyboard = iota
	KeyboardMain
	KeyboardFormat
	KeyboardDistricts
	KeyboardBackToMenu
)

// Document is an inbound file attachment.
type Document struct {
	Name string
	Mime string
	Data []byte
}

// Event is one inbound user action: a text message, a button press
// (delivered as text), or a file attachment.
type Event struct {
	Text     string
	Document *Document
}

// File is an outbound document.
type File struct {
	Name    string
	Caption string
	Data    []byte
}

// Reply is one outbound message. Selected carries the toggled district
// codes so the front end can mark the district keyboard.
type Reply struct {
	Text     string
	Keyboard Keyboard
	File     *File
	Selected []string
}

// SpreadsheetImporter converts an uploaded land-parcel spreadsheet into
// a user-facing text report.
type SpreadsheetImporter interface {
	ImportText(name, mime string, data []byte) (string, error)
}

// ImageExtractor pulls raster images out of a PDF into a zip archive
// and reports how many images it found.
type ImageExtractor interface {
	Extract(data []byte) (archive []byte, images int, err error)
}

// Machine advances per-user sessions on inbound events and emits
// outbound replies. On flow completion it invokes the scraper or the
// converters and resets the session to idle.
type Machine struct {
	store   *Store
	scraper institution.Scraper
	plots   SpreadsheetImporter
	images  ImageExtractor
	logger  *zap.Logger
}

// NewMachine constructs a Machine. The session store is injected so
// tests and alternative front ends can share or replace it.
func NewMachine(
	store *Store,
	scraper institution.Scraper,
	plots SpreadsheetImporter,
	images ImageExtractor,
	logger *zap.Logger,
) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		store:   store,
		scraper: scraper,
		plots:   plots,
		images:  images,
		logger:  logger,
	}
}

// Handle processes one inbound event for the given chat identity.
// Events for the same identity are serialized on the session lock.
func (m *Machine) Handle(ctx context.Context, chatID int64, ev Event) []Reply {
	sess, created := m.store.Get(chatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if created {
		metrics.ObserveBotEvent("first_contact")
		return []Reply{{Text: "Привет! Добро пожаловать. Выберите действие:", Keyboard: KeyboardMain}}
	}

	text := strings.TrimSpace(ev.Text)
	if strings.EqualFold(text, cmdMenu) || text == buttonMainMenu {
		metrics.ObserveBotEvent("menu")
		sess.reset()
		return []Reply{{Text: "Главное меню: выберите действие", Keyboard: KeyboardMain}}
	}

	if ev.Document != nil {
		switch sess.State {
		case StateAwaitingSpreadsheet:
			metrics.ObserveBotEvent("spreadsheet")
			return m.handleSpreadsheet(sess, *ev.Document)
		case StateAwaitingPdf:
			metrics.ObserveBotEvent("pdf")
			return m.handlePdf(sess, *ev.Document)
		}
	}

	metrics.ObserveBotEvent("message")
	switch sess.State {
	case StateIdle:
		return m.handleIdle(sess, text)
	case StateSelectingOutputFormat:
		return m.handleFormatChoice(sess, text)
	case StateSelectingDistricts:
		return m.handleDistrictChoice(ctx, sess, text)
	default:
		return []Reply{{Text: "Неизвестная команда. Для возврата в меню нажмите /menu."}}
	}
}

func (m *Machine) handleIdle(sess *Session, text string) []Reply {
	switch text {
	case buttonScrape:
		sess.State = StateSelectingOutputFormat
		return []Reply{{Text: "Выберите формат результата:", Keyboard: KeyboardFormat}}
	case buttonUploadExcel:
		sess.State = StateAwaitingSpreadsheet
		return []Reply{{Text: "Пришлите Excel-файл (.xlsx)", Keyboard: KeyboardBackToMenu}}
	case buttonExtractPdf:
		sess.State = StateAwaitingPdf
		return []Reply{{Text: "Пришлите PDF-документ (.pdf)", Keyboard: KeyboardBackToMenu}}
	default:
		return []Reply{{Text: "Неизвестная команда. Для возврата в меню нажмите /menu."}}
	}
}

func (m *Machine) handleFormatChoice(sess *Session, text string) []Reply {
	switch text {
	case buttonFormatText, buttonFormatExcel:
		sess.Settings.Excel = text == buttonFormatExcel
		sess.State = StateSelectingDistricts
		return []Reply{{
			Text:     "Выберите район(ы) для скрапинга:",
			Keyboard: KeyboardDistricts,
			Selected: sess.selectedCodes(districtOrder()),
		}}
	default:
		return []Reply{{Text: "Неизвестная команда. Выберите один из вариантов."}}
	}
}

func (m *Machine) handleDistrictChoice(ctx context.Context, sess *Session, text string) []Reply {
	if text == buttonDone {
		return m.performScrape(ctx, sess)
	}

	code := strings.TrimPrefix(text, selectedMarkPrefix)
	if _, ok := institution.DistrictByCode(code); !ok {
		return []Reply{{Text: "Неизвестная команда. Для возврата в меню нажмите /menu."}}
	}
	sess.Settings.Districts[code] = !sess.Settings.Districts[code]
	return []Reply{{
		Text:     "Выберите район(ы) для скрапинга (отмеченные добавлены):",
		Keyboard: KeyboardDistricts,
		Selected: sess.selectedCodes(districtOrder()),
	}}
}

// performScrape runs the crawl with the accumulated settings, delivers
// the result in the chosen format, and resets the session.
func (m *Machine) performScrape(ctx context.Context, sess *Session) []Reply {
	codes := sess.selectedCodes(districtOrder())
	excel := sess.Settings.Excel
	defer sess.reset()

	replies := []Reply{{Text: "Запуск скрапинга...", Keyboard: KeyboardBackToMenu}}

	records, summary, err := m.scraper.Run(ctx, true, codes)
	if err != nil {
		m.logger.Warn("scrape failed", zap.Error(err))
		return append(replies, Reply{Text: "Ошибка при скрапинге: " + err.Error()})
	}
	m.logger.Info("scrape finished",
		zap.Int("discovered", summary.Discovered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	if excel {
		data, err := export.Excel(records)
		if err != nil {
			m.logger.Error("excel export failed", zap.Error(err))
			return append(replies, Reply{Text: "Пустой ответ или не удалось получить файл."})
		}
		return append(replies, Reply{File: &File{
			Name:    "institutions.xlsx",
			Caption: "Результаты в формате Excel",
			Data:    data,
		}})
	}
	return append(replies, Reply{Text: export.Text(records)})
}

func (m *Machine) handleSpreadsheet(sess *Session, doc Document) []Reply {
	defer func() { sess.State = StateIdle }()

	result, err := m.plots.ImportText(doc.Name, doc.Mime, doc.Data)
	if err != nil {
		m.logger.Warn("landplot import failed", zap.String("file", doc.Name), zap.Error(err))
		return []Reply{{Text: "Ошибка при загрузке файла: " + err.Error()}}
	}
	return []Reply{{Text: result}}
}

func (m *Machine) handlePdf(sess *Session, doc Document) []Reply {
	defer func() { sess.State = StateIdle }()

	archive, images, err := m.images.Extract(doc.Data)
	if err != nil {
		m.logger.Warn("pdf extraction failed", zap.String("file", doc.Name), zap.Error(err))
		return []Reply{{Text: "Ошибка при загрузке PDF: " + err.Error()}}
	}
	if images == 0 {
		return []Reply{{Text: "Пустой ответ от сервера при извлечении изображений."}}
	}
	return []Reply{{File: &File{
		Name:    "extracted_images.zip",
		Caption: "Извлеченные изображения",
		Data:    archive,
	}}}
}

func districtOrder() []string {
	codes := make([]string, 0, len(institution.Districts))
	for _, d := range institution.Districts {
		codes = append(codes, d.Code)
	}
	return codes
}
