package web

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/mrz1836/testament/internal/app"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

type pageData struct {
	Title         string
	Placeholder   string
	Connected     bool
	Connecting    bool
	Snapshot      app.Snapshot
	Notifications []app.Notification
}

// actionResponse is the JSON reply to a POST action.
type actionResponse struct {
	State         app.Snapshot       `json:"state"`
	Notifications []app.Notification `json:"notifications"`
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	snap := s.page.Snapshot()
	data := pageData{
		Title:         PageTitle,
		Placeholder:   app.PlaceholderImage,
		Connected:     snap.State == app.StateConnected,
		Connecting:    snap.State == app.StateConnecting,
		Snapshot:      snap,
		Notifications: s.notifications.Drain(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("rendering page: %v", err)
		ErrRendering.WithErr(err).Write(w)
	}
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var started bool
	err := s.act(r, func(ctx context.Context) error {
		var err error
		started, err = s.page.Connect(ctx)
		return err
	})
	if err == nil && !started {
		s.reply(w, r, ErrConflict)
		return
	}
	s.reply(w, r, err)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.act(r, func(context.Context) error {
		s.page.Disconnect()
		return nil
	}))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.act(r, func(ctx context.Context) error {
		if s.page.State() == app.StateDisconnected {
			return s.page.Mount(ctx)
		}
		return s.page.Refresh(ctx)
	}))
}

func (s *Server) mint(w http.ResponseWriter, r *http.Request) {
	form, err := decodeMintForm(w, r)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	s.reply(w, r, s.act(r, func(ctx context.Context) error {
		return s.mined(s.page.Mint(ctx, form))
	}))
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, WillIDParam), 10, 64)
	if err != nil || id == 0 {
		ErrMalformedWillID.Write(w)
		return
	}
	s.reply(w, r, s.act(r, func(ctx context.Context) error {
		return s.mined(s.page.CheckIn(ctx, id))
	}))
}

func (s *Server) apiWills(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, s.page.Cards())
}

func (s *Server) apiState(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, s.page.Snapshot())
}

func (s *Server) apiMetrics(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, s.metrics.Snapshot())
}

// mined treats a transaction that went through as a success even when the
// list reload after it failed. That failure is already a notification.
func (s *Server) mined(hash common.Hash, err error) error {
	if err != nil && hash != (common.Hash{}) && tmerr.Is(err, tmerr.ErrFetchWills) {
		s.logger.Error("refreshing wills after %s: %v", hash.Hex(), err)
		return nil
	}
	return err
}

// act runs fn with the action lock held and a bounded context that is not
// canceled when the client goes away mid-transaction.
func (s *Server) act(r *http.Request, fn func(ctx context.Context) error) error {
	s.actions.Lock()
	defer s.actions.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.timeout)
	defer cancel()
	return fn(ctx)
}

// reply redirects browsers back to the page and answers JSON clients with
// the new state and pending notifications.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, err error) {
	if !wantsJSON(r) {
		http.Redirect(w, r, IndexEndpoint, http.StatusSeeOther)
		return
	}

	if err != nil {
		var apiErr Error
		if e, ok := err.(Error); ok { //nolint:errorlint // catalogue values are never wrapped
			apiErr = e
		} else {
			apiErr = fromTestament(err)
		}
		apiErr.Write(w)
		return
	}
	httpWriteJSON(w, actionResponse{State: s.page.Snapshot(), Notifications: s.notifications.Drain()})
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func decodeMintForm(w http.ResponseWriter, r *http.Request) (app.MintForm, error) {
	var form app.MintForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		err := dec.Decode(&form)
		return form, err
	}

	if err := r.ParseForm(); err != nil {
		return form, err
	}
	form.Beneficiary = strings.TrimSpace(r.PostForm.Get("beneficiary"))
	form.AssetAddress = strings.TrimSpace(r.PostForm.Get("assetAddress"))
	form.AmountOrID = strings.TrimSpace(r.PostForm.Get("amountOrId"))
	form.AmountInEther = r.PostForm.Get("amountInEther") != ""
	form.ImageURL = strings.TrimSpace(r.PostForm.Get("imageUrl"))
	form.Metadata = r.PostForm.Get("metadata")
	return form, nil
}

// httpWriteJSON writes data as a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingJSON.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(jdata, '\n'))
}

// httpWriteOK writes an empty OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("\n"))
}
