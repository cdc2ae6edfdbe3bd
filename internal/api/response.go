package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	xerrors "ProofBench/internal/errors"
)

// envelope 是所有响应共用的外层结构。
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Message string            `json:"message"`
	Code    xerrors.Code      `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details string            `json:"details,omitempty"`
}

// statusFor 将错误映射到 HTTP 状态码。挑战失败属于认证类错误，但按接口约定返回 400。
func statusFor(code xerrors.Code, kind xerrors.Kind) int {
	if code == xerrors.CodeInvalidChallenge {
		return http.StatusBadRequest
	}
	switch kind {
	case xerrors.KindValidation:
		return http.StatusBadRequest
	case xerrors.KindAuth:
		return http.StatusUnauthorized
	case xerrors.KindForbidden:
		return http.StatusForbidden
	case xerrors.KindNotFound:
		return http.StatusNotFound
	case xerrors.KindUnavailable:
		return http.StatusServiceUnavailable
	case xerrors.KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

// writeError 输出错误响应。生产环境下 5xx 只返回通用信息，开发环境附带错误链。
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := xerrors.CodeOf(err)
	status := statusFor(code, xerrors.KindOf(err))
	body := &errorBody{Code: code, Message: xerrors.AttributesOf(code).Message}
	if e, ok := xerrors.From(err); ok {
		body.Message = e.Message()
		if code == xerrors.CodeValidation {
			body.Fields = e.Metadata()
		}
	}
	if status >= http.StatusInternalServerError {
		s.alert(r, err)
		if s.production {
			body.Message = "Internal server error"
			body.Fields = nil
		}
	}
	if !s.production {
		body.Details = err.Error()
	}
	writeJSON(w, status, envelope{Success: false, Error: body})
}

// decodeJSON 解析请求体，未知字段被忽略，空请求体视为校验错误。
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return xerrors.New(xerrors.CodeValidation, "Request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return xerrors.New(xerrors.CodeValidation, "Request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return xerrors.New(xerrors.CodeValidation, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
		}
		return xerrors.Wrap(xerrors.CodeValidation, err, "Malformed JSON body")
	}
	return nil
}
