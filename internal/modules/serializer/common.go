package serializer

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var log = zap.NewNop()

// SetLogger installs the process logger used for server-side error detail.
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l
	}
}

// Response is the envelope for dashboard API responses.
type Response struct {
	Code  int         `json:"code"`
	Data  interface{} `json:"data,omitempty"`
	Msg   string      `json:"msg"`
	Error string      `json:"error,omitempty"`
}

// PingAck is the ingestion endpoint's wire contract. Unlike Response it is
// consumed by external scheduled jobs, so the shape is fixed.
type PingAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PingRecorded acknowledges an accepted ping.
func PingRecorded() PingAck {
	return PingAck{Success: true, Message: "Ping recorded"}
}

// PingErr builds a failure acknowledgment. The message is the full external
// detail; anything sensitive stays in the server log.
func PingErr(msg string) PingAck {
	return PingAck{Success: false, Error: msg}
}

// Err builds an error envelope. Error detail is exposed in development mode
// only.
func Err(errCode int, msg string, err error) Response {
	res := Response{
		Code: errCode,
		Msg:  msg,
	}
	if err != nil && gin.Mode() != gin.ReleaseMode {
		res.Error = fmt.Sprintf("%+v", err)
	}
	return res
}

// DBErr logs the persistence failure server-side and returns an opaque 500
// envelope.
func DBErr(msg string, err error) Response {
	if msg == "" {
		msg = "database error"
	}
	if err != nil {
		log.Sugar().Errorw("persistence failure", "err", err)
	}
	return Err(http.StatusInternalServerError, msg, err)
}

// ParamErr
func ParamErr(msg string, err error) Response {
	if msg == "" {
		msg = "parameter error"
	}
	return Err(http.StatusBadRequest, msg, err)
}

// AuthErr
func AuthErr(msg string) Response {
	if msg == "" {
		msg = "authentication error"
	}
	return Err(http.StatusUnauthorized, msg, nil)
}

// NotFoundErr
func NotFoundErr(msg string) Response {
	if msg == "" {
		msg = "not found"
	}
	return Err(http.StatusNotFound, msg, nil)
}
