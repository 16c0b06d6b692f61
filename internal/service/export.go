package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"incasso-core/internal/clients"
	"incasso-core/internal/repository"
)

type CaseLister interface {
	List(ctx context.Context, tenantID int64, f repository.CasesFilter) ([]repository.CaseRecord, error)
}

type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	TenantID int64     `json:"tenant_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    string    `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

// ExportService generates XLSX case sheets in the background. Job state
// lives in redis (expiring), the file goes to object storage, and progress is
// pushed to the requesting operator over the websocket hub.
type ExportService struct {
	cases   CaseLister
	redis   *clients.RedisClient
	s3      *clients.S3Client
	storage *clients.StorageClient
	ws      *clients.WebSocketClient

	log zerolog.Logger
}

// NewExportService wires the export pipeline. s3 may be nil, in which case
// files land in the local storage directory served under /files.
func NewExportService(
	cases CaseLister,
	redis *clients.RedisClient,
	s3 *clients.S3Client,
	storage *clients.StorageClient,
	ws *clients.WebSocketClient,
	log zerolog.Logger,
) *ExportService {
	return &ExportService{
		cases:   cases,
		redis:   redis,
		s3:      s3,
		storage: storage,
		ws:      ws,
		log:     log,
	}
}

type CaseColumn struct {
	Header string
	Value  func(rec repository.CaseRecord) any
}

func exportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

var caseExportColumns = map[string]CaseColumn{
	"reference_number": {
		Header: "Reference",
		Value:  func(rec repository.CaseRecord) any { return rec.ReferenceNumber },
	},
	"debtor.name": {
		Header: "Debtor",
		Value:  func(rec repository.CaseRecord) any { return rec.DebtorName },
	},
	"debtor.email": {
		Header: "Debtor email",
		Value:  func(rec repository.CaseRecord) any { return rec.DebtorEmail },
	},
	"debtor.category": {
		Header: "Debtor category",
		Value:  func(rec repository.CaseRecord) any { return string(rec.DebtorCategory) },
	},
	"issue_date": {
		Header: "Issue date",
		Value:  func(rec repository.CaseRecord) any { return exportDate(rec.IssueDate) },
	},
	"due_date": {
		Header: "Due date",
		Value:  func(rec repository.CaseRecord) any { return exportDate(rec.DueDate) },
	},
	"principal": {
		Header: "Principal",
		Value:  func(rec repository.CaseRecord) any { return rec.Principal.StringFixed(2) },
	},
	"fee_amount": {
		Header: "Collection fee",
		Value:  func(rec repository.CaseRecord) any { return rec.FeeAmount.StringFixed(2) },
	},
	"levy_amount": {
		Header: "Levy",
		Value:  func(rec repository.CaseRecord) any { return rec.LevyAmount.StringFixed(2) },
	},
	"total_due": {
		Header: "Total due",
		Value:  func(rec repository.CaseRecord) any { return rec.TotalDue.StringFixed(2) },
	},
	"total_to_receive": {
		Header: "Client receives",
		Value:  func(rec repository.CaseRecord) any { return rec.TotalToReceive.StringFixed(2) },
	},
	"total_paid": {
		Header: "Paid",
		Value:  func(rec repository.CaseRecord) any { return rec.TotalPaid.StringFixed(2) },
	},
	"balance": {
		Header: "Balance",
		Value:  func(rec repository.CaseRecord) any { return rec.Balance.StringFixed(2) },
	},
	"stage": {
		Header: "Stage",
		Value:  func(rec repository.CaseRecord) any { return string(rec.Stage) },
	},
}

func (s *ExportService) saveStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}

	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

func buildCasesFiltersMap(f repository.CasesFilter, fields []string) map[string]interface{} {
	m := map[string]interface{}{}
	if f.Stage != nil {
		m["stage"] = string(*f.Stage)
	} else {
		m["stage"] = nil
	}
	if f.DebtorID != nil {
		m["debtor_id"] = *f.DebtorID
	} else {
		m["debtor_id"] = nil
	}
	m["overdue_only"] = f.OverdueOnly
	if f.IssuedFrom != nil {
		m["issued_from"] = f.IssuedFrom.Format("2006-01-02")
	} else {
		m["issued_from"] = nil
	}
	if f.IssuedTo != nil {
		m["issued_to"] = f.IssuedTo.Format("2006-01-02")
	} else {
		m["issued_to"] = nil
	}
	m["fields"] = fields
	return m
}

func (s *ExportService) StartCasesExport(
	ctx context.Context,
	tenantID int64,
	selected []string,
	filter repository.CasesFilter,
	userID int64,
) (string, error) {
	if len(selected) == 0 {
		selected = []string{
			"reference_number",
			"debtor.name",
			"stage",
			"balance",
		}
	}

	exportID := fmt.Sprintf("exports:%s", uuid.NewString())
	now := time.Now()

	status := &ExportStatus{
		Key:      exportID,
		Type:     "cases",
		UserID:   userID,
		TenantID: tenantID,
		Filters:  buildCasesFiltersMap(filter, selected),
		Progress: 0,
		FileURL:  nil,
		Created:  now,
	}

	if err := s.saveStatus(ctx, status); err != nil {
		return "", err
	}

	go s.runCasesExport(context.Background(), status, selected, filter)

	return exportID, nil
}

func (s *ExportService) failExport(ctx context.Context, status *ExportStatus, err error) {
	s.log.Error().Err(err).Str("export_id", status.Key).Msg("cases export failed")

	status.Error = err.Error()
	_ = s.saveStatus(ctx, status)

	if s.ws != nil {
		_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, err.Error())
	}
}

func (s *ExportService) runCasesExport(
	ctx context.Context,
	status *ExportStatus,
	selected []string,
	filter repository.CasesFilter,
) {
	records, err := s.cases.List(ctx, status.TenantID, filter)
	if err != nil {
		s.failExport(ctx, status, err)
		return
	}

	var cols []CaseColumn
	for _, key := range selected {
		col, ok := caseExportColumns[key]
		if !ok {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		s.failExport(ctx, status, fmt.Errorf("no known columns among %v", selected))
		return
	}

	f := excelize.NewFile()
	sheet := "Cases"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("user_%d", status.UserID),
	})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	total := len(records)
	chunkSize := 1000

	for i, rec := range records {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, i+2)
			_ = f.SetCellValue(sheet, cell, col.Value(rec))
		}

		if (i+1)%chunkSize == 0 || i == total-1 {
			progress := math.Round(float64(i+1) / float64(total) * 100.0)
			// 100% is reserved for when the file URL is ready.
			if progress >= 100 {
				progress = 95
			}

			status.Progress = progress
			_ = s.saveStatus(ctx, status)

			if s.ws != nil {
				_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, progress, "generating")
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.failExport(ctx, status, err)
		return
	}

	fileName := fmt.Sprintf("cases_%d_%s.xlsx", status.TenantID, time.Now().Format("20060102_150405"))

	status.Progress = 95
	_ = s.saveStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, 95, "uploading")
	}

	url, err := s.storeFile(ctx, fileName, buf.Bytes())
	if err != nil {
		s.failExport(ctx, status, err)
		return
	}

	status.FileURL = &url
	status.Progress = 100
	_ = s.saveStatus(ctx, status)

	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, status.UserID, status.Key, url, fileName)
	}

	s.log.Info().
		Str("export_id", status.Key).
		Int64("tenant_id", status.TenantID).
		Int("rows", total).
		Msg("cases export ready")
}

func (s *ExportService) storeFile(ctx context.Context, fileName string, data []byte) (string, error) {
	if s.s3 != nil {
		key, err := s.s3.UploadXLSX(ctx, fileName, data)
		if err != nil {
			return "", err
		}
		return s.s3.GetTemporaryURL(ctx, key, 48*time.Hour)
	}

	if s.storage != nil {
		saved, err := s.storage.Save(ctx, fileName, data)
		if err != nil {
			return "", err
		}
		return s.storage.GetURL(saved), nil
	}

	return "", fmt.Errorf("no storage backend configured")
}

func exportView(status ExportStatus) map[string]interface{} {
	return map[string]interface{}{
		"key":        status.Key,
		"type":       status.Type,
		"user_id":    status.UserID,
		"progress":   status.Progress,
		"file_url":   status.FileURL,
		"filters":    status.Filters,
		"error":      status.Error,
		"created_at": status.Created.Format("2006-01-02 15:04:05"),
	}
}

func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]interface{}, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}

		var status ExportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}

		if status.UserID == userID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	var exports []interface{}
	for _, status := range statuses {
		exports = append(exports, exportView(status))
	}

	return exports, nil
}

func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (interface{}, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("export not found")
	}

	var status ExportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}

	if status.UserID != userID {
		return nil, fmt.Errorf("export not found")
	}

	return exportView(status), nil
}
