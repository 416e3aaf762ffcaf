// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Ledger controls logging for recovery sessions, loans, FDs and payments.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Ledger string
	// Admin controls logging for group, member and bank changes.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.MemberID != nil {
		fields = append(fields, zap.String("member_id", event.MemberID.Hex()))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryLedger:
		setting = l.config.Ledger
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if (setting == "all" || setting == "log") && l.zapLog != nil {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func ledger(r *http.Request, eventType string, groupID primitive.ObjectID, subjectID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:  audit.CategoryLedger,
		EventType: eventType,
		GroupID:   &groupID,
		SubjectID: &subjectID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	}
}

// --- Recovery Session Events ---

// SessionRegistered logs the creation of a day's recovery session.
func (l *Logger) SessionRegistered(ctx context.Context, r *http.Request, rs models.RecoverySession) {
	e := ledger(r, audit.EventSessionRegistered, rs.GroupID, rs.ID)
	e.Details = map[string]string{
		"date":    rs.DateKey,
		"entries": strconv.Itoa(len(rs.Recoveries)),
		"total":   strconv.FormatFloat(rs.Totals.TotalAmount, 'f', 2, 64),
	}
	l.Log(ctx, e)
}

// EntryUpserted logs a member entry being added or replaced.
func (l *Logger) EntryUpserted(ctx context.Context, r *http.Request, rs models.RecoverySession, memberID primitive.ObjectID) {
	e := ledger(r, audit.EventEntryUpserted, rs.GroupID, rs.ID)
	e.MemberID = &memberID
	e.Details = map[string]string{
		"date":    rs.DateKey,
		"version": strconv.FormatInt(rs.Version, 10),
	}
	if entry, ok := rs.Entry(memberID); ok {
		e.Details["entry_total"] = strconv.FormatFloat(entry.Total, 'f', 2, 64)
	}
	l.Log(ctx, e)
}

// EntryRemoved logs a member entry being removed as a correction.
func (l *Logger) EntryRemoved(ctx context.Context, r *http.Request, rs models.RecoverySession, memberID primitive.ObjectID) {
	e := ledger(r, audit.EventEntryRemoved, rs.GroupID, rs.ID)
	e.MemberID = &memberID
	e.Details = map[string]string{"date": rs.DateKey, "version": strconv.FormatInt(rs.Version, 10)}
	l.Log(ctx, e)
}

// GroupPhotoSet logs a photo being attached to a session.
func (l *Logger) GroupPhotoSet(ctx context.Context, r *http.Request, rs models.RecoverySession) {
	e := ledger(r, audit.EventGroupPhotoSet, rs.GroupID, rs.ID)
	e.Details = map[string]string{"date": rs.DateKey}
	l.Log(ctx, e)
}

// --- Loan, FD and Payment Events ---

// LoanRecorded logs a loan transaction.
func (l *Logger) LoanRecorded(ctx context.Context, r *http.Request, loan models.Loan) {
	e := ledger(r, audit.EventLoanRecorded, loan.GroupID, loan.ID)
	e.MemberID = &loan.MemberID
	e.Details = map[string]string{
		"transaction_type": loan.TransactionType,
		"amount":           strconv.FormatFloat(loan.Amount, 'f', 2, 64),
		"status":           loan.Status,
	}
	l.Log(ctx, e)
}

// FDStatus logs an FD being created, matured or closed.
func (l *Logger) FDStatus(ctx context.Context, r *http.Request, eventType string, fd models.FD) {
	e := ledger(r, eventType, fd.GroupID, fd.ID)
	e.MemberID = &fd.MemberID
	e.Details = map[string]string{
		"principal":       strconv.FormatFloat(fd.Principal, 'f', 2, 64),
		"maturity_amount": strconv.FormatFloat(fd.MaturityAmount, 'f', 2, 64),
		"status":          fd.Status,
	}
	l.Log(ctx, e)
}

// PaymentTransition logs a payment being created or moving between statuses.
// from is empty for creation.
func (l *Logger) PaymentTransition(ctx context.Context, r *http.Request, p models.Payment, from string) {
	eventType := audit.EventPaymentCreated
	switch {
	case from == "":
	case p.Status == models.PaymentApproved:
		eventType = audit.EventPaymentApproved
	case p.Status == models.PaymentRejected:
		eventType = audit.EventPaymentRejected
	case p.Status == models.PaymentCompleted:
		eventType = audit.EventPaymentCompleted
	}
	e := ledger(r, eventType, p.GroupID, p.ID)
	e.MemberID = &p.MemberID
	e.Details = map[string]string{
		"kind":   p.Kind,
		"amount": strconv.FormatFloat(p.Amount, 'f', 2, 64),
		"status": p.Status,
	}
	if from != "" {
		e.Details["from"] = from
	}
	l.Log(ctx, e)
}

// --- Admin Events ---

// Admin logs a group, member or bank change. memberID may be nil.
func (l *Logger) Admin(ctx context.Context, r *http.Request, eventType string, groupID primitive.ObjectID, memberID *primitive.ObjectID, subjectID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		GroupID:   &groupID,
		MemberID:  memberID,
		SubjectID: &subjectID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   details,
	})
}
