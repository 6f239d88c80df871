package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bitebook/internal/events"
	"bitebook/internal/model"
	"bitebook/internal/search"
	"bitebook/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func newUUID() string { return uuid.NewString() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFeed processes GET /places/feed?type=&visited=.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{Type: q.Get("type")}
	if v := q.Get("visited"); v != "" {
		visited, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid visited value %q", v), http.StatusBadRequest)
			return
		}
		f.Visited = &visited
	}

	places, err := s.store.List(r.Context(), f)
	if err != nil {
		s.serverError(w, "list places", err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// handleGet processes GET /places/place/{id}, enriching the stored record
// with live opening hours and closure status.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, "get place", err)
		return
	}

	writeJSON(w, http.StatusOK, s.enrich(r.Context(), p))
}

// handleAdd processes POST /places/add.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req model.NewPlace
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	placeType, _ := model.ParsePlaceType(string(req.Type))

	now := s.now().UTC()
	p := model.Place{
		ID:            s.newID(),
		Name:          strings.TrimSpace(req.Name),
		Type:          placeType,
		Location:      req.Location,
		FullAddress:   req.FullAddress,
		Cuisine:       req.Cuisine,
		Influence:     req.Influence,
		Visited:       req.Visited,
		Rating:        req.Rating,
		Notes:         req.Notes,
		GooglePlaceID: req.GooglePlaceID,
		Website:       req.Website,
		SocialMedia:   req.SocialMedia,
		CreatedAt:     &now,
		UpdatedAt:     &now,
	}

	if p.GooglePlaceID != "" {
		if d := s.lookupDetails(r.Context(), p.GooglePlaceID); d != nil {
			applyDetails(&p, d)
		}
	}

	if err := s.store.Save(r.Context(), p); err != nil {
		s.serverError(w, "add place", err)
		return
	}
	s.publish(r.Context(), events.PlaceAdded, p)
	w.WriteHeader(http.StatusOK)
}

// handleUpdate processes POST /places/update/{id}. Absent fields are left
// alone and null fields are cleared.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var u model.PlaceUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, fmt.Sprintf("invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := u.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if t, ok := u.Type.Get(); ok {
		canonical, _ := model.ParsePlaceType(string(t))
		u.Type = model.Value(canonical)
	}

	p, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, "update place", err)
		return
	}

	p = u.Apply(p)
	now := s.now().UTC()
	p.UpdatedAt = &now

	if err := s.store.Save(r.Context(), p); err != nil {
		s.serverError(w, "update place", err)
		return
	}
	s.publish(r.Context(), events.PlaceUpdated, p)
	w.WriteHeader(http.StatusOK)
}

// handleDelete processes PUT /places/delete/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, "delete place", err)
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.serverError(w, "delete place", err)
		return
	}
	s.publish(r.Context(), events.PlaceDeleted, p)
	w.WriteHeader(http.StatusOK)
}

// enrich fills opening hours and closure status from the provider. Places
// added without a provider id are matched by name once and the match is saved.
func (s *Server) enrich(ctx context.Context, p model.Place) model.Place {
	if s.details == nil {
		return p
	}

	if p.GooglePlaceID == "" {
		d, err := s.details.SearchText(ctx, strings.TrimSpace(p.Name+" "+p.Location))
		if err != nil {
			s.logger.Printf("Warning: failed to match place %s by name: %v", p.ID, err)
			return p
		}
		if d == nil {
			return p
		}
		p.GooglePlaceID = d.PlaceID
		if p.FullAddress == "" {
			p.FullAddress = d.FormattedAddress
		}
		if p.Website == "" {
			p.Website = d.Website
		}
		if err := s.store.Save(ctx, p); err != nil {
			s.logger.Printf("Warning: failed to save matched place %s: %v", p.ID, err)
		}
		s.cacheDetails(ctx, d)
		applyHours(&p, d)
		return p
	}

	if d := s.lookupDetails(ctx, p.GooglePlaceID); d != nil {
		applyHours(&p, d)
	}
	return p
}

// lookupDetails reads through the Redis cache. Failures are logged and yield nil.
func (s *Server) lookupDetails(ctx context.Context, googlePlaceID string) *search.Details {
	if s.details == nil {
		return nil
	}
	if s.cache != nil {
		d, err := s.cache.Get(ctx, googlePlaceID)
		if err != nil {
			s.logger.Printf("Warning: %v", err)
		}
		if d != nil {
			return d
		}
	}

	d, err := s.details.Details(ctx, googlePlaceID)
	if err != nil {
		s.logger.Printf("Warning: failed to fetch details for %s: %v", googlePlaceID, err)
		return nil
	}
	s.cacheDetails(ctx, d)
	return d
}

func (s *Server) cacheDetails(ctx context.Context, d *search.Details) {
	if s.cache == nil || d == nil || d.PlaceID == "" {
		return
	}
	if err := s.cache.Set(ctx, d.PlaceID, d); err != nil {
		s.logger.Printf("Warning: %v", err)
	}
}

// applyDetails copies provider data onto a new place.
func applyDetails(p *model.Place, d *search.Details) {
	closed := d.PermanentlyClosed
	p.PermanentlyClosed = &closed
	if !closed {
		p.OpeningHours = d.OpeningHours
	}
	if d.FormattedAddress != "" {
		p.FullAddress = d.FormattedAddress
	}
	if d.Website != "" {
		p.Website = d.Website
	}
}

// applyHours refreshes the live fields shown on a place card.
func applyHours(p *model.Place, d *search.Details) {
	if p.PermanentlyClosed == nil {
		closed := d.PermanentlyClosed
		p.PermanentlyClosed = &closed
	}
	if len(d.OpeningHours) > 0 {
		p.OpeningHours = d.OpeningHours
	}
}

func (s *Server) publish(ctx context.Context, eventType string, p model.Place) {
	if err := s.publisher.Publish(ctx, events.NewPlaceEvent(eventType, p)); err != nil {
		s.logger.Printf("Warning: %v", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Printf("%s: %v", op, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
