// Output read handlers.
//
// This file exposes the read side of the store:
//   - GET /api/output/{public_id}   (full record as JSON)
//   - GET /api/outputs              (public listing, ETag support)
//   - GET /output/{public_id}       (content as text/plain)
//   - GET /raw/{public_id}          (content as text/plain)
//   - GET /api/stats                (share counters)
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/services"
)

// GetOutput godoc
// @ID          getOutput
// @Summary     Get an output
// @Description Returns the full record, including content. Hidden outputs are retrievable by id.
// @Tags        Outputs
// @Produce     json
//
// @Param       public_id  path  string  true  "Public id"  example(3hK9QmVb2xTzLp8RnW4cYd)
//
// @Success     200  {object}  domain.Output
// @Failure     404  {object}  handlers.ErrorResponse  "Output not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/output/{public_id} [get]
func (h *Handlers) GetOutput(c *gin.Context) {
	o, err := h.outputs.Get(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// RawOutput serves the stored content as plain text. It backs both the view
// URL (/output/{public_id}) and /raw/{public_id}.
func (h *Handlers) RawOutput(c *gin.Context) {
	o, err := h.outputs.Get(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		failService(c, err)
		return
	}
	plainText(c, o.Content)
}

// ListOutputs godoc
// @ID          listOutputs
// @Summary     List public outputs
// @Description Returns visible outputs, newest first by default. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Outputs
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"outputs:newest:100:3:3:1:0\")
// @Param       sort           query   string  false "Sort key"  Enums(newest, upvotes, downvotes, score) default(newest)
// @Param       limit          query   int     false "Max items"  minimum(1) maximum(100) default(100)
//
// @Success     200  {array}   domain.Output
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /api/outputs [get]
func (h *Handlers) ListOutputs(c *gin.Context) {
	ctx := c.Request.Context()
	sort := domain.ParseSortKey(c.Query("sort"))
	limit := listLimit(c.Query("limit"))

	// ETag pre-check (best effort).
	if sum, err := h.outputs.Fingerprint(ctx, true); err == nil {
		etag := fmt.Sprintf(`W/"outputs:%s:%d:%d:%d:%d:%d"`,
			sort, limit, sum.Count, sum.MaxID, sum.Upvotes, sum.Downvotes)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.outputs.List(ctx, services.ListParams{
		VisibleOnly: true,
		Sort:        sort,
		Limit:       limit,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// listLimit parses ?limit=, defaulting when absent or not a number and
// clamping into [1, MaxListLimit].
func listLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return services.DefaultListLimit
	}
	if n < 1 {
		return 1
	}
	if n > services.MaxListLimit {
		return services.MaxListLimit
	}
	return n
}

// Stats godoc
// @ID          stats
// @Summary     Share counters
// @Description Number of outputs shared in the last hour and in total.
// @Tags        Outputs
// @Produce     json
// @Success     200  {object}  services.Stats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	st, err := h.outputs.Stats(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
