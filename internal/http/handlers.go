package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"paydo/internal/backup"
	"paydo/internal/budget"
	"paydo/internal/core"
	"paydo/internal/jalali"
	"paydo/internal/ledger"
	applog "paydo/internal/log"
)

const (
	recentLimit       = 5
	passphraseHeader  = "X-Backup-Passphrase"
	storageLabelUnits = "کیلوبایت"
)

type budgetResponse struct {
	budget.Report
	Label      string    `json:"label"`
	BarHeights []float64 `json:"barHeights"`
}

type transactionView struct {
	core.Transaction
	AccountName       string `json:"accountName"`
	TargetAccountName string `json:"targetAccountName,omitempty"`
}

type dashboardResponse struct {
	Period       jalali.Period     `json:"period"`
	Label        string            `json:"label"`
	Accounts     []core.Account    `json:"accounts"`
	TotalBalance int64             `json:"totalBalance"`
	Recent       []transactionView `json:"recent"`
}

type storageResponse struct {
	Bytes int64  `json:"bytes"`
	Label string `json:"label"`
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	period, kind, err := budgetQuery(r, s.ledger.CurrentPeriod())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report := s.ledger.Budget(period, kind)
	writeJSON(w, http.StatusOK, budgetResponse{
		Report:     report,
		Label:      period.Label(),
		BarHeights: budget.BarHeights(report.Daily),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period := s.ledger.CurrentPeriod()
	writeJSON(w, http.StatusOK, dashboardResponse{
		Period:       period,
		Label:        period.Label(),
		Accounts:     s.ledger.Accounts(),
		TotalBalance: s.ledger.TotalBalance(),
		Recent:       s.views(s.ledger.Recent(recentLimit)),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.ledger.Search(r.URL.Query().Get("q"))))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.ledger.AddTransaction(r.Context(), ledger.Draft{
		Type:            req.Type,
		Amount:          int64(req.Amount),
		Title:           req.Title,
		Tags:            req.Tags,
		AccountID:       req.AccountID,
		TargetAccountID: req.TargetAccountID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction recorded",
		applog.NewFields().WithOperation(applog.OpCreate).WithTransaction(t.ID, t.Amount, t.AccountID, t.Tags).ToSlice()...)
	writeJSON(w, http.StatusCreated, s.view(t))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":     s.ledger.Accounts(),
		"totalBalance": s.ledger.TotalBalance(),
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.ledger.AddAccount(r.Context(), ledger.AccountDraft{
		Name:    req.Name,
		Type:    req.Type,
		Balance: int64(req.Balance),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Tags())
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	changed, err := s.ledger.DeleteTag(r.Context(), r.PathValue("tag"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"changed": changed})
}

// handleBackup buffers the document so an encoding failure can still be
// reported as JSON.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.ledger.Backup(&buf, r.Header.Get(passphraseHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.FileName(s.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.restoreLimit)
	if err := s.ledger.Restore(r.Context(), body, r.Header.Get(passphraseHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger restored", applog.FieldOperation, applog.OpRestore)
	writeJSON(w, http.StatusOK, s.ledger.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Ledger reset", applog.FieldOperation, applog.OpReset)
	writeJSON(w, http.StatusOK, s.ledger.State())
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.StorageUsage(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storageResponse{Bytes: n, Label: storageLabel(n)})
}

// storageLabel renders n bytes as kilobytes with two decimals in Persian digits.
func storageLabel(n int64) string {
	kb := strconv.FormatFloat(float64(n)/1024, 'f', 2, 64)
	return jalali.ToPersianDigits(kb) + " " + storageLabelUnits
}

func (s *Server) views(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, s.view(t))
	}
	return out
}

func (s *Server) view(t core.Transaction) transactionView {
	v := transactionView{Transaction: t, AccountName: s.ledger.AccountName(t.AccountID)}
	if t.TargetAccountID != nil {
		v.TargetAccountName = s.ledger.AccountName(*t.TargetAccountID)
	}
	return v
}
