// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/relay/pkg/report"
)

const createSessionsSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(255) PRIMARY KEY,
    research TEXT,
    analysis TEXT,
    updated_at TIMESTAMP NOT NULL
);
`

// SQLStore persists sessions in SQLite.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (or creates) the SQLite database at path.
func NewSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(createSessionsSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Session, error) {
	var researchJSON, analysisJSON sql.NullString
	var updatedAt time.Time

	row := s.db.QueryRowContext(ctx,
		`SELECT research, analysis, updated_at FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&researchJSON, &analysisJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session := &Session{ID: id, UpdatedAt: updatedAt}
	if researchJSON.Valid && researchJSON.String != "" {
		var research report.ResearchResult
		if err := json.Unmarshal([]byte(researchJSON.String), &research); err != nil {
			return nil, fmt.Errorf("failed to decode research payload: %w", err)
		}
		session.Research = &research
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		var analysis report.AnalysisResult
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis payload: %w", err)
		}
		session.Analysis = &analysis
	}
	return session, nil
}

func (s *SQLStore) Put(ctx context.Context, session *Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	var researchJSON, analysisJSON []byte
	var err error
	if session.Research != nil {
		if researchJSON, err = json.Marshal(session.Research); err != nil {
			return fmt.Errorf("failed to encode research payload: %w", err)
		}
	}
	if session.Analysis != nil {
		if analysisJSON, err = json.Marshal(session.Analysis); err != nil {
			return fmt.Errorf("failed to encode analysis payload: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, research, analysis, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET research = excluded.research,
    analysis = excluded.analysis, updated_at = excluded.updated_at`,
		session.ID, string(researchJSON), string(analysisJSON), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

var _ Store = (*SQLStore)(nil)
