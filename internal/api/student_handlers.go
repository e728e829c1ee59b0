package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// academicSuffixes are the email domain endings accepted for the student price.
var academicSuffixes = []string{
	".edu", ".edu.au", ".ac.uk", ".edu.cn", ".edu.in", ".ac.in", ".edu.sg",
	".edu.hk", ".ac.nz", ".edu.br", ".edu.mx", ".ac.jp", ".edu.tw", ".ac.kr",
	".edu.pl", ".edu.es", ".edu.fr", ".edu.de", ".edu.it", ".ac.za", ".edu.co",
	".edu.ar", ".edu.pe", ".edu.cl", ".edu.ng", ".edu.pk", ".edu.ph", ".edu.my",
	".edu.vn", ".edu.eg", ".ac.il",
}

// IsStudentEmail reports whether email ends with a known academic suffix.
func IsStudentEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, suffix := range academicSuffixes {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}

type studentRequest struct {
	Email string `json:"email"`
}

func (s *Server) attachStudentRoutes(g *echo.Group) {
	g.POST("/verify-student", s.handleVerifyStudent)
}

func (s *Server) handleVerifyStudent(c echo.Context) error {
	var req studentRequest
	if err := c.Bind(&req); err != nil || !strings.Contains(req.Email, "@") {
		return fail(c, http.StatusBadRequest, codeInvalidEmail, "Please enter a valid email address.")
	}
	if !IsStudentEmail(req.Email) {
		return fail(c, http.StatusBadRequest, codeNotStudentEmail, "Please use a university email address (.edu, .ac.uk, etc.)")
	}

	email := strings.TrimSpace(req.Email)
	if err := s.opts.Notifier.SendStudentLink(c.Request().Context(), email, s.opts.StudentLink); err != nil {
		log.Error().Err(err).Str("email", email).Msg("failed to send student link")
		return fail(c, http.StatusInternalServerError, codeServerError, "Failed to send email. Please try again.")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "message": "Check your inbox!"})
}
