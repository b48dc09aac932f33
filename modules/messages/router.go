package messages

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/coursechat/handler"
	"github.com/dmitrymomot/coursechat/pkg/binder"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/messages"
)

// Error keys shared with the chat client.
var (
	ErrNotFound      = handler.NewHTTPError(http.StatusNotFound, "not_found")
	ErrNotMember     = handler.NewHTTPError(http.StatusForbidden, "not_member")
	ErrNotAuthor     = handler.NewHTTPError(http.StatusForbidden, "not_author")
	ErrAlreadyExists = handler.NewHTTPError(http.StatusConflict, "already_exists")
)

type service struct {
	svc          *messages.Service
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

// Router creates the message history router.
//
//	svc := messages.NewService(store, membership, messages.WithServiceLogger(log))
//	r.Mount("/api", msgmod.Router(svc, log))
func Router(svc *messages.Service, log *slog.Logger) chi.Router {
	if log == nil {
		log = logger.Noop()
	}
	s := &service{
		svc:          svc,
		log:          log.With(logger.Component("messages")),
		errorHandler: handler.JSONErrorHandler[handler.Context](log),
	}

	r := chi.NewRouter()
	r.Route("/rooms/{room}/messages", func(r chi.Router) {
		r.Get("/", handler.Wrap(s.list,
			handler.WithBinders[handler.Context, ListRequest](binder.Path(chi.URLParam), binder.Query(), binder.Validate()),
			handler.WithErrorHandler[handler.Context, ListRequest](s.errorHandler),
		))
		r.Post("/", handler.Wrap(s.create,
			handler.WithBinders[handler.Context, CreateRequest](binder.Path(chi.URLParam), binder.JSON(), binder.Validate()),
			handler.WithErrorHandler[handler.Context, CreateRequest](s.errorHandler),
		))
		r.Delete("/{id}", handler.Wrap(s.delete,
			handler.WithBinders[handler.Context, DeleteRequest](binder.Path(chi.URLParam), binder.Query(), binder.Validate()),
			handler.WithErrorHandler[handler.Context, DeleteRequest](s.errorHandler),
		))
	})
	return r
}

// ListRequest selects a page of history. Before is a Unix millisecond
// timestamp or an RFC 3339 time.
type ListRequest struct {
	Room   string    `path:"room" validate:"required"`
	UserID string    `query:"userId" validate:"required,notblank"`
	Limit  int       `query:"limit" validate:"omitempty,min=1,max=200"`
	Before time.Time `query:"before"`
}

func (s *service) list(ctx handler.Context, req ListRequest) handler.Response {
	msgs, err := s.svc.History(ctx, req.Room, req.UserID, messages.ListOptions{
		Limit:  req.Limit,
		Before: req.Before,
	})
	if err != nil {
		return s.fail(ctx, err)
	}
	if msgs == nil {
		msgs = []messages.Message{}
	}
	return handler.JSON(msgs, handler.WithJSONMeta(map[string]any{"count": len(msgs)}))
}

// CreateRequest posts a message. ID is optional.
type CreateRequest struct {
	Room     string        `json:"-" path:"room" validate:"required"`
	ID       string        `json:"id" validate:"omitempty,max=128"`
	AuthorID string        `json:"authorId" validate:"required,notblank"`
	Content  string        `json:"content" validate:"required,notblank"`
	Type     messages.Type `json:"type" validate:"omitempty,oneof=text file system"`
}

func (s *service) create(ctx handler.Context, req CreateRequest) handler.Response {
	msg, err := s.svc.Post(ctx, messages.PostInput{
		ID:       req.ID,
		RoomID:   req.Room,
		AuthorID: req.AuthorID,
		Content:  req.Content,
		Type:     req.Type,
	})
	if err != nil {
		return s.fail(ctx, err)
	}
	return handler.JSON(msg, handler.WithJSONStatus(http.StatusCreated))
}

// DeleteRequest removes a message on behalf of its author.
type DeleteRequest struct {
	Room   string `path:"room" validate:"required"`
	ID     string `path:"id" validate:"required"`
	UserID string `query:"userId" validate:"required,notblank"`
}

func (s *service) delete(ctx handler.Context, req DeleteRequest) handler.Response {
	if err := s.svc.Remove(ctx, req.Room, req.ID, req.UserID); err != nil {
		return s.fail(ctx, err)
	}
	return handler.Empty()
}

// fail maps service errors onto HTTP errors.
func (s *service) fail(ctx handler.Context, err error) handler.Response {
	var mapped error
	switch {
	case errors.Is(err, messages.ErrNotFound):
		mapped = ErrNotFound
	case errors.Is(err, messages.ErrNotMember):
		mapped = ErrNotMember
	case errors.Is(err, messages.ErrForbidden):
		mapped = ErrNotAuthor
	case errors.Is(err, messages.ErrAlreadyExists):
		mapped = ErrAlreadyExists
	case errors.Is(err, messages.ErrEmptyContent), errors.Is(err, messages.ErrContentTooLong):
		verr := handler.NewValidationError()
		verr.Add("content", err.Error())
		mapped = verr
	case errors.Is(err, messages.ErrInvalidType):
		verr := handler.NewValidationError()
		verr.Add("type", err.Error())
		mapped = verr
	case errors.Is(err, messages.ErrInvalidInput):
		mapped = handler.ErrBadRequest
	default:
		s.log.ErrorContext(ctx, "message request failed",
			slog.String("path", ctx.Request().URL.Path),
			logger.Error(err),
		)
		mapped = handler.ErrInternalServerError
	}
	return handler.JSONError(mapped)
}
