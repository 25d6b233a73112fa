package http

import (
	"errors"
	"net/http"

	"github.com/Simran251393/fraud-detection-system/internal/application"
	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

type blockedCheckBody struct {
	apiError
	AuthFlow  domain.AuthFlow      `json:"auth_flow"`
	RiskData  application.RiskData `json:"risk_data"`
	AttemptID int64                `json:"attempt_id"`
}

type blockedRegisterBody struct {
	apiError
	RiskLevel domain.RiskLevel     `json:"risk_level"`
	RiskData  application.RiskData `json:"risk_data"`
	AttemptID int64                `json:"attempt_id"`
}

type authBody struct {
	Message string `json:"message"`
	application.AuthResponse
}

func (h *Handler) checkLogin(w http.ResponseWriter, r *http.Request) {
	var req application.CheckLoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_login", err)
		return
	}

	res, err := h.service.CheckLogin(r.Context(), req, requestContext(r))
	if err != nil {
		var blocked *application.BlockedError
		if errors.As(err, &blocked) {
			status, code, msg := mapDomainError(err)
			logHTTPOperationError(r.Context(), "check_login", status, code, msg, err)
			writeJSON(w, status, blockedCheckBody{
				apiError:  newAPIError(code, msg),
				AuthFlow:  domain.AuthFlowBlocked,
				RiskData:  blocked.RiskData,
				AttemptID: blocked.AttemptID,
			})
			return
		}
		writeMappedError(r.Context(), w, "check_login", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) passwordless(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordlessRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "complete_passwordless", err)
		return
	}

	res, err := h.service.CompletePasswordless(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "complete_passwordless", err)
		return
	}
	writeJSON(w, http.StatusOK, authBody{Message: "Login successful", AuthResponse: res})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyOTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_otp", err)
		return
	}

	res, err := h.service.VerifyOTP(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_otp", err)
		return
	}
	writeJSON(w, http.StatusOK, authBody{Message: "OTP verified successfully", AuthResponse: res})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req, requestContext(r))
	if err != nil {
		var blocked *application.BlockedError
		if errors.As(err, &blocked) {
			msg := "Registration blocked due to high risk"
			logHTTPOperationError(r.Context(), "register", http.StatusForbidden, "BLOCKED", msg, err)
			writeJSON(w, http.StatusForbidden, blockedRegisterBody{
				apiError:  newAPIError("BLOCKED", msg),
				RiskLevel: domain.RiskLevelHigh,
				RiskData:  blocked.RiskData,
				AttemptID: blocked.AttemptID,
			})
			return
		}
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	switch {
	case res.Auth != nil:
		writeJSON(w, http.StatusCreated, authBody{Message: "Registration successful", AuthResponse: *res.Auth})
	case res.Pending != nil:
		writeJSON(w, http.StatusAccepted, res.Pending)
	default:
		writeMappedError(r.Context(), w, "register", errors.New("empty registration result"))
	}
}
