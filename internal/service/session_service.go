// Package service implements the HTTP handlers that drive a
// bill-splitting session: participant management, item assignment and the
// final summary. Handlers are thin: they bind the request, call the pure
// session mutators, persist the next state and return it with any
// user-facing notices.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/billsnap/internal/allocator"
	"github.com/mmynk/billsnap/internal/assignment"
	"github.com/mmynk/billsnap/internal/metrics"
	"github.com/mmynk/billsnap/internal/models"
	"github.com/mmynk/billsnap/internal/session"
	"github.com/mmynk/billsnap/internal/storage"
)

// SessionService handles session lifecycle and editing endpoints.
type SessionService struct {
	store    storage.Store
	currency string
}

// NewSessionService creates a SessionService backed by the given store.
// Amounts in summaries are formatted in the given currency code.
func NewSessionService(store storage.Store, currency string) *SessionService {
	return &SessionService{store: store, currency: currency}
}

// Create starts a new empty session.
func (s *SessionService) Create(c *gin.Context) {
	sess := session.New()
	if err := s.store.CreateSession(c.Request.Context(), sess); err != nil {
		slog.Error("create session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	slog.Info("session created", "session_id", sess.ID)
	c.JSON(http.StatusCreated, gin.H{"session": viewSession(sess)})
}

// Get returns the current session state.
func (s *SessionService) Get(c *gin.Context) {
	sess, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": viewSession(sess)})
}

// Delete discards a session.
func (s *SessionService) Delete(c *gin.Context) {
	if err := s.store.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// AddPerson registers a participant.
func (s *SessionService) AddPerson(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	sess, ok := s.load(c)
	if !ok {
		return
	}
	next, person, err := sess.AddPerson(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.save(c, next, nil, gin.H{"participant_id": person.ID})
}

// RemovePerson deletes a participant, cascading payer reassignment and
// purging their assignments.
func (s *SessionService) RemovePerson(c *gin.Context) {
	sess, ok := s.load(c)
	if !ok {
		return
	}
	next, err := sess.RemovePerson(c.Param("personID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.save(c, next, nil, nil)
}

// SetPayer designates who fronted the money.
func (s *SessionService) SetPayer(c *gin.Context) {
	var req struct {
		ParticipantID string `json:"participant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id is required"})
		return
	}

	sess, ok := s.load(c)
	if !ok {
		return
	}
	next, err := sess.SetPayer(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.save(c, next, nil, nil)
}

// AddItem appends a manually entered line item.
func (s *SessionService) AddItem(c *gin.Context) {
	var req models.RawItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item"})
		return
	}

	sess, ok := s.load(c)
	if !ok {
		return
	}
	next, _, err := sess.AddItem(req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.save(c, next, nil, nil)
}

// ChangeQuantity adjusts an item's quantity by a delta, clamped at 1.
func (s *SessionService) ChangeQuantity(c *gin.Context) {
	var req struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delta is required"})
		return
	}
	s.mutateItem(c, func(sess session.Session, index int) (session.Session, []assignment.Notice, error) {
		return sess.ChangeItemQuantity(index, req.Delta)
	})
}

// ToggleParticipant links or unlinks a participant from an item.
func (s *SessionService) ToggleParticipant(c *gin.Context) {
	pid, ok := bindParticipantID(c)
	if !ok {
		return
	}
	s.mutateItem(c, func(sess session.Session, index int) (session.Session, []assignment.Notice, error) {
		return sess.ToggleParticipant(index, pid)
	})
}

// IncrementUnits raises a participant's claimed-unit count.
func (s *SessionService) IncrementUnits(c *gin.Context) {
	pid, ok := bindParticipantID(c)
	if !ok {
		return
	}
	s.mutateItem(c, func(sess session.Session, index int) (session.Session, []assignment.Notice, error) {
		return sess.IncrementUnits(index, pid)
	})
}

// DecrementUnits lowers a participant's claimed-unit count.
func (s *SessionService) DecrementUnits(c *gin.Context) {
	pid, ok := bindParticipantID(c)
	if !ok {
		return
	}
	s.mutateItem(c, func(sess session.Session, index int) (session.Session, []assignment.Notice, error) {
		return sess.DecrementUnits(index, pid)
	})
}

// SetShared toggles portion-based splitting for an item.
func (s *SessionService) SetShared(c *gin.Context) {
	var req struct {
		Shared *bool `json:"shared" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shared is required"})
		return
	}
	s.mutateItem(c, func(sess session.Session, index int) (session.Session, []assignment.Notice, error) {
		return sess.SetShared(index, *req.Shared)
	})
}

// SavePortions commits the portion editor for a shared item.
func (s *SessionService) SavePortions(c *gin.Context) {
	var req struct {
		Portions [][]string `json:"portions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "portions is required"})
		return
	}
	s.mutateItem(c, func(sess session.Session, index int) (session.Session, []assignment.Notice, error) {
		return sess.SavePortions(index, req.Portions)
	})
}

// Summary runs the allocation engine and returns who owes what.
func (s *SessionService) Summary(c *gin.Context) {
	sess, ok := s.load(c)
	if !ok {
		return
	}

	start := time.Now()
	result, err := allocator.Allocate(sess.Items, sess.People, sess.Assignments)
	metrics.ObserveAllocation(time.Since(start))
	if err != nil {
		slog.Error("allocation failed", "session_id", sess.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type owedView struct {
		ParticipantID string `json:"participant_id"`
		Name          string `json:"name"`
		Amount        string `json:"amount"`
	}
	type lineView struct {
		Item   string `json:"item"`
		Amount string `json:"amount"`
		Note   string `json:"note"`
	}

	owed := make([]owedView, 0, len(sess.People))
	breakdown := make(map[string][]lineView, len(sess.People))
	consumption := make(map[string]string, len(sess.People))
	for _, p := range sess.People {
		owed = append(owed, owedView{
			ParticipantID: p.ID,
			Name:          p.Name,
			Amount:        formatAmount(result.Owed[p.ID], s.currency),
		})
		consumption[p.ID] = formatAmount(result.PersonalConsumption[p.ID], s.currency)
		for _, line := range result.Breakdown[p.ID] {
			breakdown[p.ID] = append(breakdown[p.ID], lineView{
				Item:   line.ItemName,
				Amount: formatAmount(line.Amount, s.currency),
				Note:   line.Note,
			})
		}
	}

	resp := gin.H{
		"total_bill":           formatAmount(result.TotalBill, s.currency),
		"owed":                 owed,
		"breakdown":            breakdown,
		"personal_consumption": consumption,
		"warnings":             result.Warnings,
	}
	if result.PayerID != "" {
		resp["payer_id"] = result.PayerID
		resp["payer_refund"] = formatAmount(result.PayerRefund, s.currency)
	}
	c.JSON(http.StatusOK, resp)
}

func itemIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid item index %q", c.Param("index"))
	}
	return index, nil
}

func bindParticipantID(c *gin.Context) (string, bool) {
	var req struct {
		ParticipantID string `json:"participant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id is required"})
		return "", false
	}
	return req.ParticipantID, true
}

// mutateItem loads the session, resolves the item index from the URL and
// applies fn, persisting and returning the next state plus notices.
func (s *SessionService) mutateItem(c *gin.Context, fn func(session.Session, int) (session.Session, []assignment.Notice, error)) {
	sess, ok := s.load(c)
	if !ok {
		return
	}

	index, err := itemIndex(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next, notices, err := fn(sess, index)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.save(c, next, notices, nil)
}

func (s *SessionService) load(c *gin.Context) (session.Session, bool) {
	sess, err := s.store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		} else {
			slog.Error("load session failed", "session_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		}
		return session.Session{}, false
	}
	return sess, true
}

func (s *SessionService) save(c *gin.Context, next session.Session, notices []assignment.Notice, extra gin.H) {
	if err := s.store.UpdateSession(c.Request.Context(), next); err != nil {
		slog.Error("save session failed", "session_id", next.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return
	}
	if notices == nil {
		notices = []assignment.Notice{}
	}
	resp := gin.H{
		"session": viewSession(next),
		"notices": notices,
	}
	for k, v := range extra {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}
