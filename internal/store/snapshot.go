package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"runvox/internal/models"
)

const sessionsQuery = `
SELECT
	BPAProcess.name,
	BPAStatus.description,
	BPASession.startdatetime,
	BPASession.enddatetime
FROM BPASession
	INNER JOIN BPAProcess ON BPASession.processid = BPAProcess.processid
	INNER JOIN BPAStatus ON BPASession.statusid = BPAStatus.statusid
WHERE BPAProcess.ProcessType = 'P'
	AND BPAStatus.description IN (%s)
	AND BPASession.startdatetime >= ?
ORDER BY BPASession.startdatetime`

const itemsQuery = `
SELECT
	BPVWorkQueueItem.keyvalue,
	BPAProcess.name,
	BPAProcessQueueDependency.refQueueName,
	BPVWorkQueueItem.completed,
	BPVWorkQueueItem.exception
FROM BPAProcessQueueDependency
	INNER JOIN BPAProcess ON BPAProcessQueueDependency.processID = BPAProcess.processid
	INNER JOIN BPAWorkQueue ON BPAWorkQueue.name = BPAProcessQueueDependency.refQueueName
	INNER JOIN BPVWorkQueueItem ON BPVWorkQueueItem.queueid = BPAWorkQueue.id
WHERE BPVWorkQueueItem.loaded >= ?
ORDER BY BPVWorkQueueItem.loaded`

const terminationsQuery = `
SELECT
	BPAProcess.name
FROM BPASession
	INNER JOIN BPAProcess ON BPASession.processid = BPAProcess.processid
	INNER JOIN BPAStatus ON BPASession.statusid = BPAStatus.statusid
WHERE BPAProcess.ProcessType = 'P'
	AND BPAStatus.description = ?
	AND BPASession.enddatetime >= ?
ORDER BY BPASession.enddatetime`

// FetchSessions returns the process sessions started within Window of now.
func (s *Store) FetchSessions(ctx context.Context, now time.Time) ([]models.ProcessSession, error) {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(models.ReportedStatuses)), ",")
	args := make([]any, 0, len(models.ReportedStatuses)+1)
	for _, st := range models.ReportedStatuses {
		args = append(args, string(st))
	}
	args = append(args, s.dialect.timeArg(now.Add(-Window)))

	q := s.dialect.rebind(strings.Replace(sessionsQuery, "%s", marks, 1))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &Error{Op: "fetch sessions", Err: err}
	}
	defer rows.Close()

	var out []models.ProcessSession
	for rows.Next() {
		var (
			ps     models.ProcessSession
			status string
			end    sql.NullTime
		)
		if err := rows.Scan(&ps.ProcessName, &status, &ps.StartTime, &end); err != nil {
			return nil, &Error{Op: "scan session", Err: err}
		}
		ps.Status = models.ProcessStatus(status)
		if end.Valid {
			ps.EndTime = &end.Time
		}
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "fetch sessions", Err: err}
	}

	return out, nil
}

// FetchItems returns the work items loaded within Window of now, joined
// to the process that consumes their queue.
func (s *Store) FetchItems(ctx context.Context, now time.Time) ([]models.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(itemsQuery), s.dialect.timeArg(now.Add(-Window)))
	if err != nil {
		return nil, &Error{Op: "fetch items", Err: err}
	}
	defer rows.Close()

	var out []models.WorkItem
	for rows.Next() {
		var (
			it        models.WorkItem
			key       sql.NullString
			completed sql.NullTime
			exception sql.NullTime
		)
		if err := rows.Scan(&key, &it.ProcessName, &it.WorkqueueName, &completed, &exception); err != nil {
			return nil, &Error{Op: "scan item", Err: err}
		}
		it.ItemKey = key.String
		if completed.Valid {
			it.CompletedAt = &completed.Time
		}
		if exception.Valid {
			it.ExceptionAt = &exception.Time
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "fetch items", Err: err}
	}

	return out, nil
}

// FetchTerminations returns the names of processes whose sessions ended
// as Terminated at or after since.
func (s *Store) FetchTerminations(ctx context.Context, since time.Time) ([]string, error) {
	q := s.dialect.rebind(terminationsQuery)
	rows, err := s.db.QueryContext(ctx, q, string(models.StatusTerminated), s.dialect.timeArg(since))
	if err != nil {
		return nil, &Error{Op: "fetch terminations", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &Error{Op: "scan termination", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "fetch terminations", Err: err}
	}

	return names, nil
}
