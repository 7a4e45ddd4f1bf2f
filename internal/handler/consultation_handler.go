package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexsite/internal/consult"
)

const consultationSuccessNotice = "Your consultation request has been submitted!"

// SubmitConsultation handles the page form. Validation failures re-render
// the page with the input kept; success renders a fresh form and asks the
// browser to return to the editing state after the display period.
func (a *API) SubmitConsultation(c *gin.Context) {
	var form consult.Form
	if err := c.ShouldBind(&form); err != nil {
		a.renderSite(c, http.StatusBadRequest, newConsultationView(form, consult.Outcome{}, "Invalid form submission"))
		return
	}

	outcome, err := a.flow.Submit(c.Request.Context(), form)
	switch {
	case errors.Is(err, consult.ErrIncomplete):
		a.renderSite(c, http.StatusUnprocessableEntity, newConsultationView(form, outcome, "Please fill in all required fields"))
		return
	case err != nil:
		c.Error(err)
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	c.Header("Refresh", fmt.Sprintf("%d; url=/#consultation", outcome.ResetSeconds()))
	a.renderSite(c, http.StatusOK, newConsultationView(consult.Form{}, outcome, consultationSuccessNotice))
}

// CreateConsultation is the JSON variant of SubmitConsultation.
func (a *API) CreateConsultation(c *gin.Context) {
	var form consult.Form
	if !bindJSON(c, &form, "invalid consultation payload") {
		return
	}

	outcome, err := a.flow.Submit(c.Request.Context(), form)
	switch {
	case errors.Is(err, consult.ErrIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   err.Error(),
			"missing": outcome.Missing,
		})
		return
	case err != nil:
		c.Error(err)
		respondError(c, http.StatusServiceUnavailable, "request ended before submission completed")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"state":               outcome.State,
		"message":             consultationSuccessNotice,
		"reset_after_seconds": outcome.ResetSeconds(),
	})
}
