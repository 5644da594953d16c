// Vote HTTP handlers.
//
// Each client address may vote once per output, up or down. A second vote
// from the same address, in either direction, is refused with 409.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/http/middleware"
)

// Upvote godoc
// @ID          upvote
// @Summary     Upvote an output
// @Tags        Votes
// @Produce     json
//
// @Param       public_id  path  string  true  "Public id"  example(3hK9QmVb2xTzLp8RnW4cYd)
//
// @Success     200  {object}  domain.Tally
// @Failure     404  {object}  handlers.ErrorResponse  "Output not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already voted"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/output/{public_id}/upvote [post]
func (h *Handlers) Upvote(c *gin.Context) { h.vote(c, domain.Up) }

// Downvote godoc
// @ID          downvote
// @Summary     Downvote an output
// @Tags        Votes
// @Produce     json
//
// @Param       public_id  path  string  true  "Public id"  example(3hK9QmVb2xTzLp8RnW4cYd)
//
// @Success     200  {object}  domain.Tally
// @Failure     404  {object}  handlers.ErrorResponse  "Output not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already voted"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/output/{public_id}/downvote [post]
func (h *Handlers) Downvote(c *gin.Context) { h.vote(c, domain.Down) }

func (h *Handlers) vote(c *gin.Context, dir domain.Direction) {
	tally, err := h.votes.Cast(c.Request.Context(), c.Param("public_id"), middleware.ClientIP(c), dir)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, tally)
}
