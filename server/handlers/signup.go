package handlers

import (
	"fmt"
	"net/http"

	"github.com/nomis52/rollcall/view"
)

// SignupHandler handles submissions of the signup form.
type SignupHandler struct {
	sync Synchronizer
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(sync Synchronizer) *SignupHandler {
	return &SignupHandler{sync: sync}
}

// ServeHTTP implements http.Handler. The posted values travel with the
// event; the page's form is shared by every client and is not touched.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid form: %v", err),
		})
		return
	}

	h.sync.SubmitSignup(r.Context(), &view.Event{Form: &view.FormData{
		Activity: r.PostForm.Get("activity"),
		Email:    r.PostForm.Get("email"),
	}})

	redirectHome(w, r)
}
