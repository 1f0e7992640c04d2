package handlers

import (
	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/api/dto"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/service"
	"github.com/spec-kit/ouvidoria-service/internal/sla"
)

func slaResponse(report sla.Report) dto.SLAResponse {
	return dto.SLAResponse{
		Class:            string(report.Class),
		ElapsedDays:      report.ElapsedDays,
		LimitDays:        report.LimitDays,
		WarningThreshold: report.WarningThreshold,
		RemainingDays:    report.RemainingDays,
		DueDate:          report.DueDate,
	}
}

func publicTicketResponse(view *service.PublicTicketView) dto.PublicTicketResponse {
	return dto.PublicTicketResponse{
		ProtocolNumber:    view.ProtocolNumber,
		Type:              view.Type,
		Campus:            view.Campus,
		Description:       view.Description,
		Status:            view.Status,
		ResolutionSummary: view.ResolutionSummary,
		IsAnonymous:       view.IsAnonymous,
		FullName:          view.FullName,
		ReopenCount:       view.ReopenCount,
		CanContest:        view.CanContest,
		CreatedAt:         view.CreatedAt,
		UpdatedAt:         view.UpdatedAt,
		DueDate:           view.DueDate,
		SLA:               slaResponse(view.SLA),
		History:           historyResponses(view.History, false),
	}
}

func ticketResponse(ticket *domain.Ticket, report *sla.Report) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                ticket.ID,
		ProtocolNumber:    ticket.ProtocolNumber,
		Type:              ticket.Type,
		IsAnonymous:       ticket.IsAnonymous,
		FullName:          ticket.FullName,
		WhatsappContact:   ticket.WhatsappContact,
		Email:             ticket.Email,
		Campus:            ticket.Campus,
		Description:       ticket.Description,
		Status:            ticket.Status,
		ResolutionSummary: ticket.ResolutionSummary,
		ResponsibleAgent:  ticket.ResponsibleAgent,
		ReopenCount:       ticket.ReopenCount,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
		DueDate:           ticket.DueDate,
	}
	if report != nil {
		s := slaResponse(*report)
		resp.SLA = &s
	}
	return resp
}

func ticketDetailResponse(view *service.StaffTicketView) dto.TicketDetailResponse {
	notes := make([]dto.NoteResponse, 0, len(view.Notes))
	for i := range view.Notes {
		notes = append(notes, noteResponse(&view.Notes[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(view.Ticket, &view.SLA),
		CanContest:     view.CanContest,
		Notes:          notes,
		History:        historyResponses(view.History, true),
	}
}

func noteResponse(note *domain.Note) dto.NoteResponse {
	return dto.NoteResponse{
		ID:         note.ID,
		TicketID:   note.TicketID,
		AuthorID:   note.AuthorID,
		AuthorName: note.AuthorName,
		Body:       note.Body,
		CreatedAt:  note.CreatedAt,
	}
}

func historyResponses(entries []domain.HistoryEvent, withActor bool) []dto.HistoryResponse {
	out := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.HistoryResponse{
			ActionType:  entry.ActionType,
			FieldName:   entry.FieldName,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		}
		if withActor {
			item.ActorID = entry.ActorID
		}
		out = append(out, item)
	}
	return out
}

func staffResponse(profile *domain.StaffProfile) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        profile.ID,
		UserID:    profile.UserID,
		FullName:  profile.FullName,
		Email:     profile.Email,
		Role:      profile.Role,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
}

func meResponse(profile *domain.StaffProfile) dto.MeResponse {
	role := access.FromStaff(profile)
	caps := access.VisibleActions(role).List()
	names := make([]string, 0, len(caps))
	for _, cap := range caps {
		names = append(names, string(cap))
	}
	return dto.MeResponse{
		Staff:        staffResponse(profile),
		Role:         string(role),
		Capabilities: names,
		NavTargets:   access.NavTargets(role),
	}
}

func dashboardResponse(stats *service.DashboardStats) dto.DashboardResponse {
	resp := dto.DashboardResponse{
		Total:         stats.Total,
		ByStatus:      make(map[string]int, len(stats.ByStatus)),
		ByType:        make(map[string]int, len(stats.ByType)),
		ByCampus:      make(map[string]int, len(stats.ByCampus)),
		ClosedByAgent: make([]dto.AgentClosedCount, 0, len(stats.ClosedByAgent)),
		Monthly:       make([]dto.MonthCount, 0, len(stats.Monthly)),
		OpenBySLA:     make(map[string]int, len(stats.OpenBySLA)),
	}
	for k, v := range stats.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range stats.ByType {
		resp.ByType[string(k)] = v
	}
	for k, v := range stats.ByCampus {
		resp.ByCampus[string(k)] = v
	}
	for k, v := range stats.OpenBySLA {
		resp.OpenBySLA[string(k)] = v
	}
	for _, item := range stats.ClosedByAgent {
		resp.ClosedByAgent = append(resp.ClosedByAgent, dto.AgentClosedCount(item))
	}
	for _, item := range stats.Monthly {
		resp.Monthly = append(resp.Monthly, dto.MonthCount(item))
	}
	return resp
}

func pendingEmailResponse(email *domain.PendingEmail) dto.PendingEmailResponse {
	return dto.PendingEmailResponse{
		ID:          email.ID,
		Recipient:   email.Recipient,
		Name:        email.Name,
		Subject:     email.Subject,
		HTMLBody:    email.HTMLBody,
		Protocol:    email.Protocol,
		Status:      email.Status,
		Attempts:    email.Attempts,
		LastError:   email.LastError,
		Sent:        email.Sent,
		RequestedAt: email.RequestedAt,
		SentAt:      email.SentAt,
	}
}

func contentResponse(setting *domain.ContentSetting) dto.ContentResponse {
	return dto.ContentResponse{
		Key:         setting.Key,
		Value:       setting.Value,
		Description: setting.Description,
		UpdatedAt:   setting.UpdatedAt,
	}
}
