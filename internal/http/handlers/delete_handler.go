// Delete handlers.
//
// A delete URL works once: GET shows which output it removes, POST removes
// the output and its votes. Both answer 404 once the output is gone.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteInfo identifies the output a delete token points to.
type DeleteInfo struct {
	PublicID string `json:"public_id" example:"3hK9QmVb2xTzLp8RnW4cYd"`
}

// ConfirmDelete godoc
// @ID          confirmDelete
// @Summary     Inspect a delete token
// @Description Returns the public id of the output the token would delete.
// @Tags        Delete
// @Produce     json
//
// @Param       delete_token  path  string  true  "Delete token"
//
// @Success     200  {object}  handlers.DeleteInfo
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or used token"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /delete/{delete_token} [get]
func (h *Handlers) ConfirmDelete(c *gin.Context) {
	o, err := h.outputs.GetByDeleteToken(c.Request.Context(), c.Param("delete_token"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, DeleteInfo{PublicID: o.PublicID})
}

// Delete godoc
// @ID          deleteOutput
// @Summary     Delete an output
// @Description Removes the output and its votes. The token cannot be reused.
// @Tags        Delete
//
// @Param       delete_token  path  string  true  "Delete token"
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or used token"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /delete/{delete_token} [post]
func (h *Handlers) Delete(c *gin.Context) {
	if err := h.outputs.Delete(c.Request.Context(), c.Param("delete_token")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
