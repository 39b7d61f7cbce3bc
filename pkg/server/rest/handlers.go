package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"lintang/timemap/pkg/server"
	"lintang/timemap/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type MapService interface {
	View() service.MapView
	GeographicView() (service.MapView, error)
	Select(ctx context.Context, name string) (service.MapView, error)
	Stations() []service.StationView
	Connections() []service.ConnectionView
	PathTo(target string) (service.StationPath, error)
}

type MapHandler struct {
	svc          MapService
	promeMetrics *metrics
}

func MapRouter(r *chi.Mux, svc MapService, m *metrics) {
	handler := &MapHandler{svc, m}

	r.Group(func(r chi.Router) {
		r.Route("/api/map", func(r chi.Router) {
			r.Get("/", handler.view)
			r.Get("/geographic", handler.geographicView)
			r.Post("/select", handler.selectStation)
			r.Get("/stations", handler.stations)
			r.Get("/stations/{name}/path", handler.pathTo)
			r.Get("/connections", handler.connections)
		})
	})
}

// SelectRequest body untuk pilih station sebagai origin baru.
type SelectRequest struct {
	Station string `json:"station" validate:"required"`
}

func (s *SelectRequest) Bind(r *http.Request) error {
	s.Station = strings.TrimSpace(s.Station)
	return nil
}

type StationsResponse struct {
	Stations []service.StationView `json:"stations"`
}

type ConnectionsResponse struct {
	Connections []service.ConnectionView `json:"connections"`
}

func (h *MapHandler) view(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, h.svc.View())
}

func (h *MapHandler) geographicView(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GeographicView()
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, view)
}

// selectStation jalankan augmentation lalu return layout baru dengan station itu sebagai origin.
func (h *MapHandler) selectStation(w http.ResponseWriter, r *http.Request) {
	data := &SelectRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	view, err := h.svc.Select(r.Context(), data.Station)
	if err != nil {
		h.promeMetrics.SelectCount.WithLabelValues("error").Inc()
		render.Render(w, r, ErrChi(err))
		return
	}
	h.promeMetrics.SelectCount.WithLabelValues("ok").Inc()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, view)
}

func (h *MapHandler) stations(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, StationsResponse{Stations: h.svc.Stations()})
}

func (h *MapHandler) connections(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ConnectionsResponse{Connections: h.svc.Connections()})
}

func (h *MapHandler) pathTo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("station name is required")))
		return
	}
	p, err := h.svc.PathTo(name)
	if err != nil {
		render.Render(w, r, ErrChi(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}

type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrChi(err error) render.Renderer {
	statusText := ""
	switch getStatusCode(err) {
	case http.StatusNotFound:
		statusText = "Resource not found."
	case http.StatusInternalServerError:
		statusText = "Internal server error."
	case http.StatusBadRequest:
		statusText = "Bad request."
	default:
		statusText = "Error."
	}

	// error asal (mis. response transit service) tidak di expose ke client
	errText := "internal server error"
	var ierr *server.Error
	if errors.As(err, &ierr) {
		errText = ierr.Message()
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: getStatusCode(err),
		StatusText:     statusText,
		ErrorText:      errText,
	}
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ierr *server.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	}
	switch ierr.Code() {
	case server.ErrInternalServerError:
		return http.StatusInternalServerError
	case server.ErrNotFound:
		return http.StatusNotFound
	case server.ErrBadParamInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}
