package event

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eventmate/eventmate/internal/rest"
	"github.com/eventmate/eventmate/pkg/user"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type OwnerDTO struct {
	Id    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type EventDTO struct {
	Id           string    `json:"_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Owner        OwnerDTO  `json:"owner"`
	Location     string    `json:"location"`
	Capacity     int       `json:"capacity"`
	TicketPrice  float64   `json:"ticket_price"`
	ImageUrls    []string  `json:"imageUrls"`
	ContactInfo  string    `json:"contact_info"`
	TicketsSold  int       `json:"tickets_sold"`
	AttendeeList []string  `json:"attendee_list"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// EventRequestDTO is the body of create and update calls. Absent fields decode to nil.
type EventRequestDTO struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Date        *string   `json:"date"`
	Location    *string   `json:"location"`
	Capacity    *int      `json:"capacity"`
	TicketPrice *float64  `json:"ticket_price"`
	ImageUrls   *[]string `json:"imageUrls"`
	ContactInfo *string   `json:"contact_info"`
}

type EventsResponseDTO struct {
	Success bool       `json:"success"`
	Events  []EventDTO `json:"events"`
}

type EventResponseDTO struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Event   EventDTO `json:"event"`
}

type Handler struct {
	eventService Service
}

func NewHandler(eventService Service) *Handler {
	return &Handler{eventService: eventService}
}

// Today godoc
// @Summary Events of today
// @Description Events dated today (UTC) that the current user owns or attends
// @Tags Event
// @Produce json
// @Success 200 {object} EventsResponseDTO
// @Failure 401 {object} rest.ErrorResponse "Unauthorized"
// @Router /api/events/today [get]
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting today's events")
	events, err := h.eventService.Today(r.Context())
	h.writeEvents(w, r, events, err)
}

// Month godoc
// @Summary Events of a month
// @Tags Event
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} EventsResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid year or month parameters."
// @Router /api/events/month/{year}/{month} [get]
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	log.Tracef("Getting events of month %s-%s", vars["year"], vars["month"])

	period, err := ParseMonthPeriod(vars["year"], vars["month"])
	if err != nil {
		log.Debugf("invalid month: %v", err)
		rest.WriteError(w, http.StatusBadRequest, "Invalid year or month parameters.")
		return
	}
	events, err := h.eventService.InPeriod(r.Context(), period)
	h.writeEvents(w, r, events, err)
}

// Day godoc
// @Summary Events of a day
// @Tags Event
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Param day path int true "Day of month"
// @Success 200 {object} EventsResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date parameters."
// @Router /api/events/day/{year}/{month}/{day} [get]
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	log.Tracef("Getting events of day %s-%s-%s", vars["year"], vars["month"], vars["day"])

	period, err := ParseDayPeriod(vars["year"], vars["month"], vars["day"])
	if err != nil {
		log.Debugf("invalid day: %v", err)
		rest.WriteError(w, http.StatusBadRequest, "Invalid date parameters.")
		return
	}
	events, err := h.eventService.InPeriod(r.Context(), period)
	h.writeEvents(w, r, events, err)
}

// AllEvents godoc
// @Summary All events
// @Tags Event
// @Produce json
// @Success 200 {object} EventsResponseDTO
// @Router /api/events/allEvents [get]
func (h *Handler) AllEvents(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting all events")
	events, err := h.eventService.All(r.Context())
	h.writeEvents(w, r, events, err)
}

// MyEvents godoc
// @Summary Events owned by the current user
// @Tags Event
// @Produce json
// @Success 200 {object} EventsResponseDTO
// @Router /api/events/myEvents [get]
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting owned events")
	events, err := h.eventService.Mine(r.Context())
	h.writeEvents(w, r, events, err)
}

// AttendingEvents godoc
// @Summary Events the current user attends
// @Tags Event
// @Produce json
// @Success 200 {object} EventsResponseDTO
// @Router /api/events/attending [get]
func (h *Handler) AttendingEvents(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting attended events")
	events, err := h.eventService.Attending(r.Context())
	h.writeEvents(w, r, events, err)
}

// Details godoc
// @Summary Event details
// @Tags Event
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} EventResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event ID"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id} [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	log.Tracef("Getting event %s", id)

	event, err := h.eventService.Details(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, EventResponseDTO{Success: true, Event: eventToDTO(event)})
}

// Create godoc
// @Summary Create an event
// @Description Create an event owned by the current user
// @Tags Event
// @Accept json
// @Produce json
// @Param event body EventRequestDTO true "Event"
// @Success 201 {object} EventResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Please provide all required event details."
// @Router /api/events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating event")

	var req EventRequestDTO
	if err := rest.DecodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}
	event, err := dtoToEvent(req)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	created, err := h.eventService.Create(r.Context(), event)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	rest.WriteJSON(w, http.StatusCreated, EventResponseDTO{
		Success: true,
		Message: "Event created successfully",
		Event:   eventToDTO(created),
	})
}

// Update godoc
// @Summary Update an event
// @Description Partially update an event owned by the current user
// @Tags Event
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param event body EventRequestDTO true "Fields to change"
// @Success 200 {object} EventResponseDTO
// @Failure 403 {object} rest.ErrorResponse "Not authorized to update this event"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	log.Debugf("Updating event %s", id)

	var req EventRequestDTO
	if err := rest.DecodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}
	updated, err := h.eventService.Update(r.Context(), id, dtoToUpdate(req))
	if err != nil {
		h.writeError(w, r, err, "Not authorized to update this event")
		return
	}
	rest.WriteJSON(w, http.StatusOK, EventResponseDTO{
		Success: true,
		Message: "Event updated successfully",
		Event:   eventToDTO(updated),
	})
}

// Delete godoc
// @Summary Delete an event
// @Tags Event
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 403 {object} rest.ErrorResponse "Not authorized to delete this event"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	log.Debugf("Deleting event %s", id)

	if err := h.eventService.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, "Not authorized to delete this event")
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Event deleted successfully")
}

// Join godoc
// @Summary Join an event
// @Tags Event
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 400 {object} rest.ErrorResponse "Already joined or event full"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/join/{id} [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	log.Debugf("Joining event %s", id)

	if err := h.eventService.Join(r.Context(), id); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Successfully joined the event")
}

// Leave godoc
// @Summary Leave an event
// @Tags Event
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 400 {object} rest.ErrorResponse "You are not an attendee of this event"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	log.Debugf("Leaving event %s", id)

	if err := h.eventService.Leave(r.Context(), id); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Successfully left the event")
}

func (h *Handler) writeEvents(w http.ResponseWriter, r *http.Request, events []Event, err error) {
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, EventsResponseDTO{Success: true, Events: dtos})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, notOwnerMessage string) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, ErrNotOwner):
		rest.WriteError(w, http.StatusForbidden, notOwnerMessage)
	case errors.Is(err, ErrAlreadyJoined):
		rest.WriteError(w, http.StatusBadRequest, "You have already joined this event")
	case errors.Is(err, ErrEventFull):
		rest.WriteError(w, http.StatusBadRequest, "Event is full, no more tickets available")
	case errors.Is(err, ErrNotAttendee):
		rest.WriteError(w, http.StatusBadRequest, "You are not an attendee of this event")
	case errors.Is(err, ErrMissingDetails):
		rest.WriteError(w, http.StatusBadRequest, "Please provide all required event details.")
	case errors.Is(err, ErrInvalidDate):
		rest.WriteError(w, http.StatusBadRequest, "Invalid date format.")
	case errors.Is(err, ErrInvalidEvent):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		rest.WriteInternalError(w, r, err)
	}
}

func eventIdFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event ID")
		return uuid.Nil, false
	}
	return id, true
}

func dtoToEvent(req EventRequestDTO) (Event, error) {
	if isBlank(req.Title) || isBlank(req.Description) || isBlank(req.Date) || isBlank(req.Location) ||
		isBlank(req.ContactInfo) || req.Capacity == nil || req.TicketPrice == nil || req.ImageUrls == nil {
		return Event{}, ErrMissingDetails
	}
	date, err := ParseEventDate(*req.Date)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Title:       *req.Title,
		Description: *req.Description,
		Date:        date,
		Location:    *req.Location,
		Capacity:    *req.Capacity,
		TicketPrice: *req.TicketPrice,
		ImageUrls:   *req.ImageUrls,
		ContactInfo: *req.ContactInfo,
	}, nil
}

func dtoToUpdate(req EventRequestDTO) EventUpdate {
	return EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
		TicketPrice: req.TicketPrice,
		ImageUrls:   req.ImageUrls,
		ContactInfo: req.ContactInfo,
	}
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func eventToDTO(e Event) EventDTO {
	attendees := make([]string, 0, len(e.Attendees))
	for _, id := range e.Attendees {
		attendees = append(attendees, id.String())
	}
	imageUrls := e.ImageUrls
	if imageUrls == nil {
		imageUrls = []string{}
	}
	return EventDTO{
		Id:          e.Id.String(),
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Owner: OwnerDTO{
			Id:    e.Owner.Id.String(),
			Name:  e.Owner.Name,
			Email: e.Owner.Email,
		},
		Location:     e.Location,
		Capacity:     e.Capacity,
		TicketPrice:  e.TicketPrice,
		ImageUrls:    imageUrls,
		ContactInfo:  e.ContactInfo,
		TicketsSold:  e.TicketsSold,
		AttendeeList: attendees,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
