// Share HTTP handler.
//
// POST /api/share stores a submission and answers with its view and delete
// URLs. The delete URL is only ever handed out here.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an earlier share from
// the same address used the same key, the stored URLs are returned again with
// `Idempotency-Replayed: true` and nothing new is stored.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/http/middleware"
	"github.com/tbourn/fetchbin/internal/services"
)

// ShareBodyLimit caps the JSON body of a share request. JSON escaping can
// grow content up to six times (\u00XX), plus room for the envelope.
const ShareBodyLimit = 6*domain.MaxContentBytes + 64<<10

// HeaderIdempotencyReplayed marks a response served from an earlier request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// ShareRequest is the JSON payload for sharing an output.
type ShareRequest struct {
	// Content is the text to share (required, at most 1 MiB).
	Content string `json:"content" example:"total 8\ndrwxr-xr-x 2 dev dev 4096 ."`
	// Label optionally describes the content, e.g. the command that produced it.
	Label *string `json:"label,omitempty" example:"ls -la"`
	// Command is accepted as an alias of Label.
	Command *string `json:"command,omitempty" example:"ls -la"`
	// Hidden keeps the output out of public listings.
	Hidden *bool `json:"hidden,omitempty" example:"false"`
	// IsHidden is accepted as an alias of Hidden.
	IsHidden *bool `json:"is_hidden,omitempty"`
}

func (r ShareRequest) label() *string {
	if r.Label != nil {
		return r.Label
	}
	return r.Command
}

func (r ShareRequest) hidden() bool {
	switch {
	case r.Hidden != nil:
		return *r.Hidden
	case r.IsHidden != nil:
		return *r.IsHidden
	default:
		return false
	}
}

// ShareResponse carries the URLs of a stored output.
type ShareResponse struct {
	URL       string `json:"url" example:"https://fetchbin.example/output/3hK9QmVb2xTzLp8RnW4cYd"`
	DeleteURL string `json:"delete_url" example:"https://fetchbin.example/delete/Pq7Wd2LkR9sAeF5gHj3kMn"`
}

// Share godoc
// @ID          shareOutput
// @Summary     Share an output
// @Description Stores text and returns its public view URL and its one-time delete URL.
// @Description Supports idempotency via the Idempotency-Key header (same key from the same address → same URLs).
// @Tags        Outputs
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ShareRequest  true  "Share payload"
//
// @Success     201  {object}  handlers.ShareResponse
// @Header      201  {string}  Idempotency-Replayed  "true when served from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse  "Blank content or invalid body"
// @Failure     413  {object}  handlers.ErrorResponse  "Content too large"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/share [post]
func (h *Handlers) Share(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ShareBodyLimit)

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "content exceeds the 1 MiB limit")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	o, replayed, err := h.outputs.CreateIdempotent(c.Request.Context(), services.CreateParams{
		Content: req.Content,
		Label:   req.label(),
		Hidden:  req.hidden(),
		Channel: services.ChannelHTTP,
	}, middleware.ClientIP(c), key)
	if err != nil {
		failService(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
	}

	ok(c, http.StatusCreated, ShareResponse{
		URL:       services.ViewURL(h.publicURL, o.PublicID),
		DeleteURL: services.DeleteURL(h.publicURL, o.DeleteToken),
	})
}
