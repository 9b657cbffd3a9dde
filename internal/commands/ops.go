package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
)

// findRecords runs one search to completion and returns the records that
// pass filter.
func findRecords(ctx context.Context, client *lobby.Client, q session.Query, filter string) ([]session.Record, error) {
	var res lobby.FindResult
	h, err := client.FindSessions(q, func(r lobby.FindResult) { res = r })
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	if err := client.Await(ctx, h); err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	if res.Err != nil {
		return nil, fmt.Errorf("find sessions: %w", res.Err)
	}

	client.SetFilter(filter)
	return lobby.FilterSlice(filter, client.Search().Results), nil
}

// hostSession creates a session and waits for the backend to assign its ID.
func hostSession(ctx context.Context, client *lobby.Client, cfg session.Config) (string, error) {
	var res lobby.CreateResult
	h, err := client.CreateSession(cfg, func(r lobby.CreateResult) { res = r })
	if err != nil {
		return "", err
	}
	if err := client.Await(ctx, h); err != nil {
		return "", err
	}
	if res.Err != nil {
		return "", res.Err
	}
	return res.SessionID, nil
}

// joinRecord joins rec, which must come from the client's current search.
func joinRecord(ctx context.Context, client *lobby.Client, req session.JoinRequest) (lobby.JoinResult, error) {
	var res lobby.JoinResult
	h, err := client.JoinSession(req, func(r lobby.JoinResult) { res = r })
	if err != nil {
		return lobby.JoinResult{}, fmt.Errorf("join %s: %w", req.Record.DisplayName, err)
	}
	if err := client.Await(ctx, h); err != nil {
		return lobby.JoinResult{}, fmt.Errorf("join %s: %w", req.Record.DisplayName, err)
	}
	if res.Err != nil {
		return res, fmt.Errorf("join %s: %w", req.Record.DisplayName, res.Err)
	}
	return res, nil
}

// matchSession picks the record whose ID equals target, or failing that the
// single record whose display name matches target ignoring case.
func matchSession(records []session.Record, target string) (session.Record, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return session.Record{}, fmt.Errorf("session name or ID is required")
	}

	for _, r := range records {
		if r.ID == target {
			return r, nil
		}
	}

	var matches []session.Record
	for _, r := range records {
		if strings.EqualFold(r.DisplayName, target) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return session.Record{}, fmt.Errorf("%w: %q", session.ErrNotFound, target)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return session.Record{}, fmt.Errorf("%q matches %d sessions (%s); join by ID instead",
			target, len(matches), strings.Join(ids, ", "))
	}
}
