package handler

import (
	"net/http"

	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/response"
)

type healthCheckHandler struct {
	errHandler *errHandler.ErrorHandler
}

func NewHealthCheckHandler(errHandler *errHandler.ErrorHandler) *healthCheckHandler {
	return &healthCheckHandler{
		errHandler: errHandler,
	}
}

func (h *healthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	message := "Up and grateful"

	err := response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
