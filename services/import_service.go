package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Форматы и кодировки входных файлов
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// Виды импорта
const (
	ImportKindBOM        = "bom"
	ImportKindDeliveries = "deliveries"
)

// Заголовки BOM-листа
const (
	colPartNumber    = "Part Number"
	colPartName      = "Part Name"
	colSupplier      = "Supplier"
	colDescription   = "Description"
	colType          = "Type"
	colQtyPerLRV     = "Qty Needed Per LRV"
	colShippedOut    = "Quantity shipped out by store"
	colCurrentStock  = "Quantity currently in stock at store"
	colBackOrdered   = "Quantity Back Ordered"
	colBackOrderInfo = "Back Order Delivery Info"
	colNotes         = "Notes"
)

// Заголовки журнала поставок
const (
	colDate   = "Date"
	colQty    = "Qty"
	colVendor = "Vendor"
)

var (
	bomColumns = []string{
		colPartNumber, colPartName, colSupplier, colDescription, colType, colQtyPerLRV,
		colShippedOut, colCurrentStock, colBackOrdered, colBackOrderInfo, colNotes,
	}
	bomRequired = []string{colPartNumber, colQtyPerLRV}

	deliveryColumns  = []string{colDate, colPartNumber, colDescription, colQty, colVendor}
	deliveryRequired = []string{colDate, colPartNumber, colQty}

	naTokens = map[string]bool{
		"N/A": true, "NA": true, "#N/A": true, "NONE": true, "NULL": true,
		"\u2014": true, "-": true, "--": true, "#VALUE!": true, "NAN": true,
	}

	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	numericPrefix   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?([eE][+-]?\d+)?`)
	numberNoise     = regexp.MustCompile(`[,\s]`)

	deliveryDateLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"1/2/2006",
		"01/02/2006",
		"1/2/06",
		"01-02-06",
		"2-Jan-2006",
		"2-Jan-06",
		"Jan 2, 2006",
		"2 Jan 2006",
	}
)

// ImportOptions параметры чтения файла
type ImportOptions struct {
	Format   string
	Sheet    string
	Encoding string
}

// ImportRowError ошибка в конкретной строке файла; строки нумеруются как в таблице
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary итог импорта
type ImportSummary struct {
	Kind    string           `json:"kind"`
	Rows    int              `json:"rows"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Linked  int              `json:"linked"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}

func (s *ImportSummary) fail(row int, err error) {
	s.Skipped++
	s.Errors = append(s.Errors, ImportRowError{Row: row, Message: err.Error()})
}

// ImportService массовая загрузка каталога и журнала поставок из таблиц
type ImportService struct {
	catalog  *CatalogService
	engine   *ReconciliationService
	store    repository.Store
	notifier Notifier
	metrics  *Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

// NewImportService создает сервис импорта
func NewImportService(catalog *CatalogService, engine *ReconciliationService, store repository.Store, notifier Notifier, metrics *Metrics, logger *logrus.Logger) *ImportService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &ImportService{
		catalog:  catalog,
		engine:   engine,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// FormatFromFilename определяет формат по расширению файла
func FormatFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	default:
		return FormatXLSX
	}
}

// ImportBOM загружает BOM-лист: создает или обновляет детали по номеру, плохие строки пропускает
func (s *ImportService) ImportBOM(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportSummary, error) {
	table, err := s.readTable(r, opts, bomColumns, bomRequired)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Kind: ImportKindBOM, Errors: []ImportRowError{}}
	for i, row := range table.rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rowNum := i + 2
		summary.Rows++

		partNumber := table.text(row, colPartNumber)
		if partNumber == "" {
			summary.Skipped++
			s.metrics.importRow(ImportKindBOM, "skipped")
			continue
		}

		input := PartInput{
			PartNumber:      partNumber,
			PartName:        table.text(row, colPartName),
			Supplier:        table.text(row, colSupplier),
			Description:     table.text(row, colDescription),
			Type:            normalizePartType(table.text(row, colType)),
			QtyPerLRV:       orZero(table.number(row, colQtyPerLRV)),
			QtyCurrentStock: orZero(table.number(row, colCurrentStock)),
			QtyBackOrdered:  orZero(table.number(row, colBackOrdered)),
			BackOrderInfo:   table.text(row, colBackOrderInfo),
			Notes:           table.text(row, colNotes),
		}

		created, err := s.catalog.UpsertPart(ctx, input, table.number(row, colShippedOut))
		var persistence *PersistenceError
		if errors.As(err, &persistence) {
			return summary, err
		}
		if err != nil {
			summary.fail(rowNum, fmt.Errorf("%s: %w", partNumber, err))
			s.metrics.importRow(ImportKindBOM, "failed")
			s.logger.WithFields(logrus.Fields{"row": rowNum, "part_number": partNumber}).WithError(err).Warn("bom row skipped")
			continue
		}

		if created {
			summary.Created++
			s.metrics.importRow(ImportKindBOM, "created")
		} else {
			summary.Updated++
			s.metrics.importRow(ImportKindBOM, "updated")
		}
	}

	s.finishImport(summary)
	return summary, nil
}

// ImportDeliveries загружает журнал поставок; каждая строка проходит через RecordDelivery
func (s *ImportService) ImportDeliveries(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportSummary, error) {
	table, err := s.readTable(r, opts, deliveryColumns, deliveryRequired)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note := "Imported from Excel on " + now.Format("2006-01-02")
	summary := &ImportSummary{Kind: ImportKindDeliveries, Errors: []ImportRowError{}}
	for i, row := range table.rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rowNum := i + 2
		summary.Rows++

		partNumber := table.text(row, colPartNumber)
		rawDate := table.text(row, colDate)
		quantity := parseDeliveryQuantity(table.raw(row, colQty))
		if partNumber == "" || rawDate == "" || quantity == nil || !quantity.IsPositive() {
			summary.Skipped++
			s.metrics.importRow(ImportKindDeliveries, "skipped")
			continue
		}

		dateReceived := models.DateOnly(parseDeliveryDate(rawDate, now))
		exists, err := s.store.Logs().DeliveryExists(ctx, partNumber, dateReceived)
		if err != nil {
			return summary, wrapPersistence("import_deliveries", err)
		}
		if exists {
			summary.Skipped++
			s.metrics.importRow(ImportKindDeliveries, "duplicate")
			continue
		}

		partName := table.text(row, colDescription)
		if partName == "" {
			partName = partNumber
		}
		supplier := table.text(row, colVendor)
		if supplier == "" {
			supplier = "Unknown"
		}

		result, err := s.engine.RecordDelivery(ctx, DeliveryInput{
			PartNumber:       partNumber,
			PartName:         partName,
			Supplier:         supplier,
			QuantityReceived: *quantity,
			DateReceived:     dateReceived,
			Notes:            note,
		})
		var persistence *PersistenceError
		if errors.As(err, &persistence) {
			return summary, err
		}
		if err != nil {
			summary.fail(rowNum, fmt.Errorf("%s: %w", partNumber, err))
			s.metrics.importRow(ImportKindDeliveries, "failed")
			continue
		}

		summary.Created++
		if result.Part != nil {
			summary.Linked++
		}
		s.metrics.importRow(ImportKindDeliveries, "created")
	}

	s.finishImport(summary)
	return summary, nil
}

func (s *ImportService) finishImport(summary *ImportSummary) {
	s.logger.WithFields(logrus.Fields{
		"kind":    summary.Kind,
		"rows":    summary.Rows,
		"created": summary.Created,
		"updated": summary.Updated,
		"linked":  summary.Linked,
		"skipped": summary.Skipped,
	}).Info("import finished")
	s.notifier.Publish(DashboardEvent{Type: EventImportFinished, Payload: summary})
}

// table строки файла с сопоставленными заголовками
type table struct {
	columns map[string]int
	rows    [][]string
}

func (s *ImportService) readTable(r io.Reader, opts ImportOptions, expected, required []string) (*table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(opts.Format) {
	case FormatCSV:
		records, err = readCSV(r, opts.Encoding)
	case FormatXLSX, "":
		records, err = readWorkbook(r, opts.Sheet)
	default:
		return nil, &ValidationError{Message: "unsupported import format: " + opts.Format}
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ValidationError{Message: "file has no header row"}
	}

	columns := mapHeaders(records[0], expected)
	var missing []string
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Message: "missing required columns: " + strings.Join(missing, ", ")}
	}
	return &table{columns: columns, rows: records[1:]}, nil
}

func readWorkbook(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ValidationError{Message: "cannot open workbook: " + err.Error()}
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &ValidationError{Message: "sheet not found: " + sheet}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ValidationError{Message: "cannot read sheet: " + err.Error()}
	}
	return rows, nil
}

func readCSV(r io.Reader, encoding string) ([][]string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
	case EncodingWindows1252, "cp1252":
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return nil, &ValidationError{Message: "unsupported encoding: " + encoding}
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ValidationError{Message: "cannot parse csv: " + err.Error()}
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

// mapHeaders сопоставляет заголовки файла с ожидаемыми без учета регистра и пунктуации
func mapHeaders(header []string, expected []string) map[string]int {
	byKey := make(map[string]string, len(expected))
	for _, name := range expected {
		byKey[simplifyHeader(name)] = name
	}

	columns := make(map[string]int, len(expected))
	for i, raw := range header {
		name, ok := byKey[simplifyHeader(raw)]
		if !ok {
			continue
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}
	return columns
}

func simplifyHeader(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "\u00a0", " "))
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(name, " "))
}

func (t *table) raw(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// text возвращает очищенное значение ячейки; N/A-маркеры дают пустую строку
func (t *table) text(row []string, column string) string {
	return cleanText(t.raw(row, column))
}

func (t *table) number(row []string, column string) *decimal.Decimal {
	return parseNumber(t.raw(row, column))
}

func cleanText(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\u00a0", " "))
	if naTokens[strings.ToUpper(value)] {
		return ""
	}
	return value
}

// parseNumber берет числовой префикс: "1,250" -> 1250, "25(16)" -> 25; nil, если числа нет
func parseNumber(value string) *decimal.Decimal {
	value = cleanText(value)
	if value == "" {
		return nil
	}
	match := numericPrefix.FindString(numberNoise.ReplaceAllString(value, ""))
	if match == "" {
		return nil
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return nil
	}
	return &d
}

// parseDeliveryQuantity отбрасывает единицы измерения: "12758.928 ft" -> 12758.928
func parseDeliveryQuantity(value string) *decimal.Decimal {
	value = cleanText(value)
	if i := strings.IndexByte(value, ' '); i > 0 {
		value = value[:i]
	}
	return parseNumber(value)
}

// parseDeliveryDate разбирает дату поставки; "13-May" получает текущий год, нераспознанная дата дает сегодня
func parseDeliveryDate(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range deliveryDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.Parse("2-Jan", value); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t
		}
	}
	return now
}

func normalizePartType(value string) string {
	if strings.HasPrefix(strings.ToLower(value), "consumable") {
		return models.PartTypeConsumables
	}
	return models.PartTypeEssential
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
