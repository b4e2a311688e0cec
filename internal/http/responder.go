package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/logging"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidShiftID      = errors.New("無効なシフト ID です。")
	errInvalidWorkplaceID  = errors.New("無効な勤務地 ID です。")
	errInvalidRuleID       = errors.New("無効なルール ID です。")
	errInvalidUserID       = errors.New("無効なユーザー ID です。")
	errInvalidQuery        = errors.New("クエリパラメータが正しくありません。")
	errMissingSessionToken = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	if payload == nil || status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeBatch answers a multi-record write. A partial failure is reported as
// 207 with the per-record outcome so the caller can retry.
func (r responder) writeBatch(ctx context.Context, w http.ResponseWriter, status int, payload any, err error) {
	if err != nil && !errors.Is(err, application.ErrPartialFailure) {
		r.handleServiceError(ctx, w, err)
		return
	}
	if err != nil {
		status = http.StatusMultiStatus
	}
	r.writeJSON(ctx, w, status, payload)
}

// serviceErrors maps application failures to responses. The first matching
// entry wins.
var serviceErrors = []struct {
	target error
	status int
	body   errorResponse
}{
	{application.ErrPartialFailure, http.StatusMultiStatus, errorResponse{ErrorCode: "PARTIAL_FAILURE", Message: "一部のデータを保存できませんでした。再実行してください。"}},
	{application.ErrUnauthorized, http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: "この操作を実行する権限がありません。"}},
	{application.ErrInvalidCredentials, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: "名前または PIN が正しくありません。"}},
	{application.ErrNotFound, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"}},
	{application.ErrWorkplaceInUse, http.StatusConflict, errorResponse{ErrorCode: "WORKPLACE_IN_USE", Message: "この勤務地を参照しているシフトがあるため削除できません。"}},
	{application.ErrShiftTaken, http.StatusConflict, errorResponse{ErrorCode: "SHIFT_TAKEN", Message: "このシフトには既に担当者がいます。"}},
	{application.ErrNotSignedUp, http.StatusConflict, errorResponse{ErrorCode: "NOT_SIGNED_UP", Message: "このシフトには登録されていません。"}},
	{application.ErrAlreadyExists, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: "同じ名前が既に登録されています。"}},
	{application.ErrProtectedUser, http.StatusConflict, errorResponse{ErrorCode: "PROTECTED_USER", Message: "このユーザーは削除または降格できません。"}},
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	for _, mapped := range serviceErrors {
		if errors.Is(err, mapped.target) {
			r.writeJSON(ctx, w, mapped.status, mapped.body)
			return
		}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  localizeValidationErrors(vErr),
		})
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var fieldLabels = map[string]string{
	"name":        "名前",
	"pin":         "PIN",
	"start_time":  "開始時刻",
	"end_time":    "終了時刻",
	"date":        "日付",
	"position":    "持ち場",
	"occupant_id": "担当者",
	"workplace":   "勤務地",
	"weekdays":    "曜日",
	"end_date":    "終了日",
	"from":        "期間の開始日",
	"to":          "期間の終了日",
	"year":        "年",
	"month":       "月",
	"selected":    "選択日",
}

var suffixMessages = []struct {
	suffix string
	format string
}{
	{" is required", "%sは必須です。"},
	{" is too long", "%sが長すぎます。"},
	{" is invalid", "%sの値が不正です。"},
	{" must be HH:MM", "%sは HH:MM 形式で指定してください。"},
	{" must be YYYY-MM-DD", "%sは YYYY-MM-DD 形式で指定してください。"},
}

func translateValidationMessage(message string) string {
	switch message {
	case "end_time must differ from start_time":
		return "終了時刻は開始時刻と異なる時刻を指定してください。"
	case "end_time must be after start time":
		return "終了時刻は開始時刻より後である必要があります。"
	case "fixed hours require both start_time and end_time":
		return "固定時間を設定する場合は開始時刻と終了時刻の両方が必要です。"
	case "position must name an existing workplace":
		return "持ち場には登録済みの勤務地を指定してください。"
	case "workplace must name an existing workplace":
		return "登録済みの勤務地を指定してください。"
	case "weekdays must not be empty":
		return "曜日を 1 つ以上指定してください。"
	case "weekdays must be between 0 and 6":
		return "曜日は 0 (日曜) から 6 (土曜) の範囲で指定してください。"
	case "end_date must not be before today":
		return "終了日に過去の日付は指定できません。"
	case "end_date exceeds the rule horizon":
		return "終了日が登録できる期間を超えています。"
	case "to must not be before from":
		return "期間の終了日は開始日以降を指定してください。"
	case "year is out of range":
		return "年の値が範囲外です。"
	case "month must be between 1 and 12":
		return "月は 1 から 12 の範囲で指定してください。"
	case "occupant must reference an existing user":
		return "担当者には登録済みのユーザーを指定してください。"
	case "pin must be 4 digits":
		return "PIN は 4 桁の数字で指定してください。"
	case "rule violates a storage constraint":
		return "ルールを保存できませんでした。入力内容を確認してください。"
	}

	for _, candidate := range suffixMessages {
		field, ok := strings.CutSuffix(message, candidate.suffix)
		if !ok {
			continue
		}
		if label, known := fieldLabels[field]; known {
			return strings.Replace(candidate.format, "%s", label, 1)
		}
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
