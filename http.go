package storefront

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

const bearerScheme = "Bearer"

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ErrorHandler renders errors as ErrorResponse using the HTTP code they
// carry. Anything without a code is an internal error.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger()
	}

	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		} else {
			logger.Debug("request rejected",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		}

		return c.Status(status).JSON(body)
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 {
			status = fiber.StatusInternalServerError
		}

		body := ErrorResponse{Message: richErr.Message}
		if len(richErr.ValidationErrors) > 0 {
			body.Errors = richErr.ValidationMap()
		}
		if detail, ok := richErr.Metadata["error"].(string); ok {
			body.Error = detail
		}
		if status >= fiber.StatusInternalServerError && body.Error == "" && richErr.TextCode == "" {
			body.Message = "Server Error"
		}
		return status, body
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse{Message: fiberErr.Message}
	}

	return fiber.StatusInternalServerError, ErrorResponse{Message: "Server Error"}
}

// BearerToken extracts the token from the Authorization header
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAccount resolves the bearer token through guard and stores the
// account on the request. An empty role admits any authenticated account.
func RequireAccount(guard Guard, role Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, err := guard.Authorize(c.UserContext(), BearerToken(c), role)
		if err != nil {
			return err
		}

		SetRequestAccount(c, account)
		return c.Next()
	}
}

// parseBody decodes the JSON body into out.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, ErrMalformedPayload.Message).
			WithTextCode(TextCodeMalformedPayload).
			WithCode(fiber.StatusBadRequest)
	}
	return nil
}
