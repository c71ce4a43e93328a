package statement

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/auth"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/httputil"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/metrics"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/ratelimit"
)

const (
	// multipart overhead allowed on top of the largest accepted file
	uploadBodySlack   = 1 << 20
	uploadMemoryLimit = 10 << 20

	purposeDownloadLink = "download-link"
	purposeRedeem       = "redeem"
)

// Handler exposes the statement endpoints.
type Handler struct {
	service       *Service
	downloads     *DownloadService
	rateLimiter   *ratelimit.Limiter
	publicBaseURL string
}

// NewHandler creates the statement handler. When publicBaseURL is empty
// download URLs are built from the request's scheme and host.
func NewHandler(service *Service, downloads *DownloadService, rateLimiter *ratelimit.Limiter, publicBaseURL string) *Handler {
	return &Handler{
		service:       service,
		downloads:     downloads,
		rateLimiter:   rateLimiter,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	StatementID uuid.UUID `json:"statementId"`
}

// DownloadLinkResponse carries a single-use-window download URL
type DownloadLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Upload handles statement ingestion
// @Summary      Upload a statement
// @Description  Store a PDF statement for a customer account. Admin only.
// @Tags         statements
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file         formData file   true  "Statement PDF"
// @Param        customerId   formData string true  "Customer id"
// @Param        accountId    formData string true  "Account id"
// @Param        period       formData string true  "Period (YYYY-MM)"
// @Param        accountType  formData string false "main or savings"
// @Success      201 {object} UploadResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Not an admin"
// @Failure      409 {object} httputil.ErrorResponse "Duplicate statement"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /statements [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := callerFrom(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+uploadBodySlack)
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.IncUpload("rejected")
			httputil.RespondErrorWithCode(w, ErrInvalidFileSize.Error(), httputil.CodeInvalidFileSize, http.StatusBadRequest)
			return
		}
		logger.Warn("invalid upload body", "error", err.Error())
		metrics.IncUpload("rejected")
		httputil.RespondErrorWithCode(w, "multipart/form-data body required", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.IncUpload("rejected")
		httputil.RespondErrorWithCode(w, "file is required", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}
	defer file.Close()

	st, err := h.service.Upload(r.Context(), UploadRequest{
		CustomerID:  r.FormValue("customerId"),
		AccountID:   r.FormValue("accountId"),
		AccountType: r.FormValue("accountType"),
		Period:      r.FormValue("period"),
		FileName:    header.Filename,
		ContentType: mediaType(header.Header.Get("Content-Type")),
		Size:        header.Size,
		Content:     file,
		Actor:       principal.Actor(),
	})
	if err != nil {
		message, code, status := uploadError(err)
		if status == http.StatusInternalServerError {
			logger.Error("statement upload failed", "error", err.Error())
			metrics.IncUpload("failed")
		} else {
			logger.Warn("statement upload rejected", "error", err.Error())
			metrics.IncUpload("rejected")
		}
		httputil.RespondErrorWithCode(w, message, code, status)
		return
	}

	metrics.IncUpload("created")
	w.Header().Set("Location", "/statements/"+st.ID.String())
	httputil.RespondJSON(w, UploadResponse{StatementID: st.ID}, http.StatusCreated)
}

// List handles statement listing for the calling customer
// @Summary      List statements
// @Description  List the caller's statements, newest period first
// @Tags         statements
// @Produce      json
// @Security     BearerAuth
// @Param        accountId    query string false "Account id"
// @Param        accountType  query string false "main or savings"
// @Param        period       query string false "Exact period (YYYY-MM)"
// @Param        fromPeriod   query string false "Earliest period (YYYY-MM)"
// @Param        toPeriod     query string false "Latest period (YYYY-MM)"
// @Param        lastMonths   query int    false "Only the last N months (1-120)"
// @Param        skip         query int    false "Items to skip"
// @Param        take         query int    false "Items to return (max 200)"
// @Success      200 {array}  Statement
// @Failure      400 {object} httputil.ErrorResponse "Invalid query"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /statements [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := callerFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	q := ListQuery{
		AccountID:   query.Get("accountId"),
		AccountType: query.Get("accountType"),
		Period:      query.Get("period"),
		FromPeriod:  query.Get("fromPeriod"),
		ToPeriod:    query.Get("toPeriod"),
	}

	var err error
	if q.LastMonths, err = intParam(query, "lastMonths"); err == nil {
		if q.Skip, err = intParam(query, "skip"); err == nil {
			q.Take, err = intParam(query, "take")
		}
	}
	if err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	statements, err := h.service.List(r.Context(), principal.CustomerID, q)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPeriod):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidPeriod, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidAccountType):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidAccountType, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidListQuery):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequest, http.StatusBadRequest)
		default:
			logger.Error("failed to list statements", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to list statements", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if statements == nil {
		statements = []Statement{}
	}
	httputil.RespondJSON(w, statements, http.StatusOK)
}

// CreateDownloadLink handles download link minting
// @Summary      Create a download link
// @Description  Issue a short-lived download URL for one of the caller's statements
// @Tags         statements
// @Produce      json
// @Security     BearerAuth
// @Param        id  path string true "Statement id"
// @Success      200 {object} DownloadLinkResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /statements/{id}/download-link [post]
func (h *Handler) CreateDownloadLink(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if !h.allow(w, r, principal.CustomerID, purposeDownloadLink) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondNotFound(w)
		return
	}

	link, err := h.downloads.CreateDownloadLink(r.Context(), CreateLinkRequest{
		StatementID: id,
		CustomerID:  principal.CustomerID,
		Actor:       principal.Actor(),
	})
	if err != nil {
		if errors.Is(err, ErrStatementNotFound) {
			httputil.RespondNotFound(w)
			return
		}
		logger.Error("failed to create download link", "statement_id", id, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create download link", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	metrics.IncDownloadLink()
	logger.Info("download link generated",
		"statement_id", id,
		"customer_id", principal.CustomerID,
		"expires_at", link.ExpiresAt,
	)

	httputil.RespondJSON(w, DownloadLinkResponse{
		URL:       h.baseURL(r) + "/downloads/" + url.PathEscape(link.Token),
		ExpiresAt: link.ExpiresAt,
	}, http.StatusOK)
}

// Download handles token redemption
// @Summary      Download a statement
// @Description  Redeem a download link. Only the customer the link was issued to may redeem it.
// @Tags         downloads
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        token  path string true "Download token"
// @Success      200 {file} file
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Forbidden"
// @Failure      404 {object} httputil.ErrorResponse "Not found"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /downloads/{token} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	principal, ok := callerFrom(w, r)
	if !ok {
		return
	}

	if !h.allow(w, r, principal.CustomerID, purposeRedeem) {
		return
	}

	result, err := h.downloads.Redeem(r.Context(), RedeemRequest{
		Token:      chi.URLParam(r, "token"),
		CustomerID: principal.CustomerID,
		Actor:      principal.Actor(),
	})
	if err != nil {
		logger.Error("failed to redeem download link", "error", err.Error())
		metrics.IncRedemption("error", "")
		httputil.RespondErrorWithCode(w, "failed to download statement", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	metrics.IncRedemption(result.Outcome.String(), result.Reason)

	switch result.Outcome {
	case OutcomeNotFound:
		logger.Warn("download link rejected", "reason", result.Reason)
		httputil.RespondNotFound(w)
		return
	case OutcomeForbidden:
		logger.Warn("download link refused", "reason", result.Reason, "statement_id", result.StatementID)
		httputil.RespondErrorWithCode(w, "forbidden", httputil.CodeForbidden, http.StatusForbidden)
		return
	}

	defer result.Content.Close()

	logger.Info("statement downloaded",
		"statement_id", result.StatementID,
		"customer_id", principal.CustomerID,
	)

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(result.FileName))
	http.ServeContent(w, r, result.FileName, result.Content.ModTime(), result.Content)
}

func callerFrom(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	principal, ok := auth.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
	}
	return principal, ok
}

// allow applies the per-customer rate limit. Limiter errors let the
// request through.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, subject, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	ok, err := h.rateLimiter.Allow(r.Context(), subject, purpose)
	if err != nil {
		logger.Error("failed to check rate limit", "purpose", purpose, "error", err.Error())
		return true
	}
	if !ok {
		logger.Warn("rate limit exceeded", "purpose", purpose, "ip", httputil.GetClientIP(r))
		metrics.IncRateLimited(purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func uploadError(err error) (message, code string, status int) {
	switch {
	case errors.Is(err, ErrCustomerRequired), errors.Is(err, ErrAccountRequired):
		return err.Error(), httputil.CodeInvalidRequest, http.StatusBadRequest
	case errors.Is(err, ErrInvalidIdentifier):
		return err.Error(), httputil.CodeInvalidIdentifier, http.StatusBadRequest
	case errors.Is(err, ErrInvalidPeriod):
		return err.Error(), httputil.CodeInvalidPeriod, http.StatusBadRequest
	case errors.Is(err, ErrInvalidAccountType):
		return err.Error(), httputil.CodeInvalidAccountType, http.StatusBadRequest
	case errors.Is(err, ErrInvalidContentType):
		return err.Error(), httputil.CodeInvalidFileType, http.StatusBadRequest
	case errors.Is(err, ErrInvalidFileSize), errors.Is(err, ErrSizeMismatch):
		return err.Error(), httputil.CodeInvalidFileSize, http.StatusBadRequest
	case errors.Is(err, ErrInvalidFileContent):
		return err.Error(), httputil.CodeInvalidFileContent, http.StatusBadRequest
	case errors.Is(err, ErrDuplicateStatement):
		return err.Error(), httputil.CodeConflict, http.StatusConflict
	default:
		return "failed to upload statement", httputil.CodeInternalError, http.StatusInternalServerError
	}
}

func contentDisposition(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return `attachment; filename="` + defaultFileName + `"`
}

// mediaType strips parameters from a Content-Type value. Unparseable
// values are passed through for the service to reject.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}
