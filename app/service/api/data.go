package api

import (
	"time"

	"wingman/app/model"
)

type OpenerRequest struct {
	Profile model.MatchProfile `json:"profile"`
}

type ReplyRequest struct {
	Profile      model.MatchProfile `json:"profile"`
	LastMessages []model.Message    `json:"last_messages"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MatchReadyResponse struct {
	Name               string    `json:"name"`
	ReadinessTimestamp time.Time `json:"readiness_timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
