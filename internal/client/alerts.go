package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

func (c *Client) ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error) {
	q := query{}.
		id("branch_id", f.BranchID).
		flag("unread", f.UnreadOnly).
		id("limit", int64(f.Limit))

	var out []model.Alert
	if err := c.getJSON(ctx, "/alerts/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkAlertRead(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodPost, idPath("/alerts/", id, "read"), nil, nil)
}

func (c *Client) MarkAllAlertsRead(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/alerts/read_all/", nil, nil)
}

// ActivityFeed returns the most recent activity entries of the company.
func (c *Client) ActivityFeed(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	var out []model.ActivityLog
	if err := c.getJSON(ctx, "/alerts/activity/", query{}.id("limit", int64(limit)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUserReports lists feedback. Platform admins see every company's.
func (c *Client) ListUserReports(ctx context.Context, status string) ([]model.UserReport, error) {
	var out []model.UserReport
	if err := c.getJSON(ctx, "/user_reports/", query{}.text("status", status), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUserReport(ctx context.Context, req model.UserReportRequest) (*model.UserReport, error) {
	var out model.UserReport
	if err := c.sendJSON(ctx, http.MethodPost, "/user_reports/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUserReportStatus(ctx context.Context, id int64, status string) (*model.UserReport, error) {
	var out model.UserReport
	req := model.UserReportStatusRequest{Status: status}
	if err := c.sendJSON(ctx, http.MethodPatch, idPath("/user_reports/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
