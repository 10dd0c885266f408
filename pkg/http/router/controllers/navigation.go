package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/naviguide/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type navigationAPI struct {
	navigationService NavigationService
	log               *zap.Logger
}

func New(navigationService NavigationService, log *zap.Logger) *navigationAPI {
	return &navigationAPI{
		navigationService: navigationService,
		log:               log,
	}
}

func (api *navigationAPI) Routes(group *helper.RouteGroup) {
	group.POST("/sessions", api.createSession)
	group.GET("/sessions/:id/progress", api.sessionProgress)
	group.POST("/sessions/:id/location", api.postLocation)
	group.POST("/sessions/:id/advance", api.advanceLeg)
	group.POST("/sessions/:id/reroute", api.requestReroute)
	group.DELETE("/sessions/:id", api.closeSession)
}

func (api *navigationAPI) createSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request createSessionRequest
		err     error
	)
	err = json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return
	}

	sessionID, route, batteryMonitoringDisabled, err := api.navigationService.CreateSession(
		r.Context(), request.Waypoints())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusCreated,
		envelope{"data": NewSessionResponse(sessionID, route, batteryMonitoringDisabled)},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) sessionProgress(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sessionID := p.ByName("id")
	if sessionID == "" {
		api.BadRequestResponse(w, r, errors.New("session id is required"))
		return
	}

	progress, state, rerouteState, held, err := api.navigationService.SessionProgress(sessionID)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewProgressResponse(progress, state, rerouteState, held)},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) postLocation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sessionID := p.ByName("id")
	if sessionID == "" {
		api.BadRequestResponse(w, r, errors.New("session id is required"))
		return
	}

	var (
		request locationFixRequest
		err     error
	)
	err = json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return
	}

	if err := api.navigationService.ConsumeFix(sessionID, request.ToLocationFix()); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	progress, state, rerouteState, held, err := api.navigationService.SessionProgress(sessionID)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewProgressResponse(progress, state, rerouteState, held)},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) advanceLeg(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sessionID := p.ByName("id")
	if sessionID == "" {
		api.BadRequestResponse(w, r, errors.New("session id is required"))
		return
	}

	if err := api.navigationService.AdvanceLeg(sessionID); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	progress, state, rerouteState, held, err := api.navigationService.SessionProgress(sessionID)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewProgressResponse(progress, state, rerouteState, held)},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) requestReroute(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sessionID := p.ByName("id")
	if sessionID == "" {
		api.BadRequestResponse(w, r, errors.New("session id is required"))
		return
	}

	if err := api.navigationService.RequestReroute(sessionID); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusAccepted,
		envelope{"data": map[string]string{"status": "reroute requested"}},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) closeSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sessionID := p.ByName("id")
	if sessionID == "" {
		api.BadRequestResponse(w, r, errors.New("session id is required"))
		return
	}

	if err := api.navigationService.CloseSession(sessionID); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": map[string]string{"status": "session closed"}},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}
