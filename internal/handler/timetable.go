package handler

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/timetable"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/utils"
)

// TimetableView 是可用度表页面所需的全部数据
type TimetableView struct {
	People          []string              `json:"people"`
	Timetable       []domain.TimetableDay `json:"timetable"`
	FromDate        civil.Date            `json:"fromDate"`
	ToDate          civil.Date            `json:"toDate"`
	Today           civil.Date            `json:"today"`
	CanUpdateOwn    bool                  `json:"canUpdateOwn"`
	CanUpdateOthers bool                  `json:"canUpdateOthers"`
	Message         string                `json:"message"`
	Warnings        []string              `json:"warnings"`
}

func (h *Handler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	from, err := utils.ParseOptionalDate(r.URL.Query().Get("from_date"))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	to, err := utils.ParseOptionalDate(r.URL.Query().Get("to_date"))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	settings := r.Context().Value(SettingsCtx).(*domain.CalendarSettings)

	// 区间不合法时退回默认区间，并把原因作为警告返回
	warnings := make([]string, 0)
	from, to, err = h.engine.ResolveRange(*settings, from, to)
	if err != nil {
		var rejected *timetable.RangeRejectedError
		if !errors.As(err, &rejected) {
			h.internalServerError(w, r, err)
			return
		}
		warnings = append(warnings, rejected.Error())
	}

	h.renderTimetable(w, r, h.engine.GetTimetable, from, to, "获取可用度表成功", "", warnings)
}

func (h *Handler) UpdateTimetable(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtx).(*domain.Principal)
	project := r.Context().Value(ProjectCtx).(*domain.Project)
	members := r.Context().Value(MembersCtx).([]string)

	var req struct {
		OrigFromDate string            `json:"origFromDate" validate:"required,datetime=2006-01-02"`
		OrigToDate   string            `json:"origToDate" validate:"required,datetime=2006-01-02"`
		Edits        map[string]string `json:"edits" validate:"required"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	origFrom, err := civil.ParseDate(req.OrigFromDate)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	origTo, err := civil.ParseDate(req.OrigToDate)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateEditRange(origFrom, origTo, timetable.MaxInterval); err != nil {
		h.badRequest(w, r, err)
		return
	}

	batch, err := utils.ParseEdits(req.Edits, origFrom, origTo, members)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 只有 UPDATE_OWN 权限的用户不能修改别人的可用度
	if len(utils.OtherUsers(batch, principal.Username)) > 0 && !principal.Can(domain.PermissionUpdateOthers) {
		h.errorResponse(w, r, "权限不足")
		return
	}
	if !principal.Can(domain.PermissionUpdateOwn) && !principal.Can(domain.PermissionUpdateOthers) {
		h.errorResponse(w, r, "权限不足")
		return
	}

	result, err := h.engine.UpdateTimetable(r.Context(), project.ID, batch, origFrom, origTo)
	if err != nil {
		h.storeErrorResponse(w, r, err)
		return
	}

	h.notifyChangedMembers(r.Context(), principal, project, result.Changed())

	// 只读副本可能还没有同步刚写入的数据，回显必须读主库
	h.renderTimetable(w, r, h.engine.GetTimetableFromPrimary, origFrom, origTo, "更新可用度表成功", "可用度表已更新", make([]string, 0))
}

type timetableLoader func(ctx context.Context, projectID int64, members []string, policy timetable.DefaultDayPolicy, from, to civil.Date) (*domain.Timetable, error)

func (h *Handler) renderTimetable(w http.ResponseWriter, r *http.Request, load timetableLoader, from, to civil.Date, msg string, viewMessage string, warnings []string) {
	principal := r.Context().Value(PrincipalCtx).(*domain.Principal)
	project := r.Context().Value(ProjectCtx).(*domain.Project)
	members := r.Context().Value(MembersCtx).([]string)
	settings := r.Context().Value(SettingsCtx).(*domain.CalendarSettings)

	policy := timetable.NewDefaultDayPolicy(settings.WorkDays)
	tt, err := load(r.Context(), project.ID, members, policy, from, to)
	if err != nil {
		h.storeErrorResponse(w, r, err)
		return
	}

	h.successResponse(w, r, msg, TimetableView{
		People:          members,
		Timetable:       tt.Days,
		FromDate:        tt.FromDate,
		ToDate:          tt.ToDate,
		Today:           h.engine.Today(),
		CanUpdateOwn:    principal.Can(domain.PermissionUpdateOwn),
		CanUpdateOthers: principal.Can(domain.PermissionUpdateOthers),
		Message:         viewMessage,
		Warnings:        warnings,
	})
}
