package migrations

import (
	"context"
	"time"

	"git.flipper.school/flipper/flipper/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(CreateEverything{})
}

type CreateEverything struct{}

func (m CreateEverything) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 9, 2, 10, 15, 0, 0, time.UTC))
}

func (m CreateEverything) Name() string {
	return "CreateEverything"
}

func (m CreateEverything) Description() string {
	return "Creates the users, sessions, courses and course content tables"
}

func (m CreateEverything) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE flipper_user (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			username VARCHAR(255) NOT NULL,
			password VARCHAR(256) NOT NULL,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			last_signed TIMESTAMP WITH TIME ZONE,
			signed TIMESTAMP WITH TIME ZONE,
			active TIMESTAMP WITH TIME ZONE
		);
		CREATE UNIQUE INDEX flipper_user_username ON flipper_user (username);

		CREATE TABLE session (
			id CHAR(64) PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES flipper_user (id) ON DELETE CASCADE,
			token CHAR(64) NOT NULL,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			expires TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX session_expires ON session (expires) WHERE expires IS NOT NULL;

		CREATE TABLE course (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			teachers UUID[] NOT NULL DEFAULT '{}',
			students UUID[] NOT NULL DEFAULT '{}',
			pending_students UUID[] NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE UNIQUE INDEX course_name_first_teacher ON course (name, (teachers[1]));
		CREATE INDEX course_teachers ON course USING GIN (teachers);
		CREATE INDEX course_students ON course USING GIN (students);
		CREATE INDEX course_pending_students ON course USING GIN (pending_students);

		CREATE TABLE minilesson (
			id UUID PRIMARY KEY,
			course_id UUID NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			due_date TIMESTAMP WITH TIME ZONE
		);
		CREATE INDEX minilesson_course_id ON minilesson (course_id);

		CREATE TABLE page (
			id UUID PRIMARY KEY,
			minilesson_id UUID NOT NULL REFERENCES minilesson (id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			resource TEXT,
			position INT NOT NULL,
			created TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX page_minilesson_id ON page (minilesson_id, position);

		CREATE TABLE mcq (
			id UUID PRIMARY KEY,
			page_id UUID NOT NULL REFERENCES page (id) ON DELETE CASCADE,
			question TEXT NOT NULL,
			answers TEXT[] NOT NULL,
			answer TEXT NOT NULL,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			CONSTRAINT mcq_answer_is_choice CHECK (answer = ANY(answers))
		);
		CREATE INDEX mcq_page_id ON mcq (page_id);

		CREATE TABLE submission (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES flipper_user (id) ON DELETE CASCADE,
			mcq_id UUID NOT NULL REFERENCES mcq (id) ON DELETE CASCADE,
			answer TEXT NOT NULL,
			score INT NOT NULL,
			created TIMESTAMP WITH TIME ZONE NOT NULL,
			CONSTRAINT submission_once UNIQUE (user_id, mcq_id)
		);
		CREATE INDEX submission_mcq_id ON submission (mcq_id);
	`)
	return err
}

func (m CreateEverything) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE submission;
		DROP TABLE mcq;
		DROP TABLE page;
		DROP TABLE minilesson;
		DROP TABLE course;
		DROP TABLE session;
		DROP TABLE flipper_user;
	`)
	return err
}
