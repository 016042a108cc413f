package migration

import (
	"context"
	"fmt"

	"git.flipper.school/flipper/flipper/src/config"
	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/flipdata"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"git.flipper.school/flipper/flipper/src/store/pgstore"
	lorem "github.com/HandmadeNetwork/golorem"
)

// SamplePassword is the password of every seeded user.
const SamplePassword = "Flipper123"

// SampleSeed fills a migrated database with a few users and a course for
// local development.
func SampleSeed(ctx context.Context) error {
	conn, err := db.NewConnPool(ctx)
	if err != nil {
		return oops.New(err, "failed to connect to database")
	}
	s := pgstore.New(conn)
	defer s.Close()

	return Seed(ctx, s)
}

// Seed creates the sample data through the regular repositories, so every
// record passes the same checks as one made through the API.
func Seed(ctx context.Context, s store.Store) error {
	repos, err := flipdata.New(s, flipdata.Options{
		Sessions:     config.Config.Sessions,
		Registration: config.Config.Registration,
	})
	if err != nil {
		return err
	}

	fmt.Println("Creating users...")
	users := map[string]*models.User{}
	for _, u := range []struct{ name, username string }{
		{"Ada Teacher", "ada_teacher"},
		{"Ben Student", "ben_student"},
		{"Cleo Student", "cleo_student"},
		{"Dev Applicant", "dev_pending"},
	} {
		user, err := repos.Users.Add(ctx, schema.Data{"name": u.name, "username": u.username, "password": SamplePassword})
		if err != nil {
			return oops.New(err, "failed to create user %s", u.username)
		}
		users[u.username] = user
	}

	fmt.Println("Creating course...")
	course, err := repos.Courses.Add(ctx, schema.Data{"name": "Introduction to Biology", "teacher_id": users["ada_teacher"].ID})
	if err != nil {
		return oops.New(err, "failed to create course")
	}
	for _, username := range []string{"ben_student", "cleo_student", "dev_pending"} {
		if _, err := repos.Courses.Join(ctx, schema.Data{"id": course.ID, "student_id": users[username].ID}); err != nil {
			return oops.New(err, "failed to request admission for %s", username)
		}
	}
	for _, username := range []string{"ben_student", "cleo_student"} {
		if _, err := repos.Courses.AcceptStudent(ctx, schema.Data{"id": course.ID, "teacher_id": users["ada_teacher"].ID, "student_id": users[username].ID}); err != nil {
			return oops.New(err, "failed to admit %s", username)
		}
	}

	fmt.Println("Creating minilessons...")
	teacherID := users["ada_teacher"].ID
	for i, title := range []string{"Cells", "Photosynthesis", "Genetics"} {
		m, err := repos.Minilessons.Add(ctx, schema.Data{"course_id": course.ID, "user_id": teacherID, "title": title})
		if err != nil {
			return oops.New(err, "failed to create minilesson %s", title)
		}
		// The last one stays a draft.
		if i < 2 {
			if _, err := repos.Minilessons.Publish(ctx, schema.Data{"id": m.ID, "user_id": teacherID}); err != nil {
				return oops.New(err, "failed to publish minilesson %s", title)
			}
		}

		page, err := repos.Pages.Add(ctx, schema.Data{"minilesson_id": m.ID, "user_id": teacherID, "title": title + " basics"})
		if err != nil {
			return oops.New(err, "failed to create page")
		}
		if _, err := repos.Mcqs.Add(ctx, schema.Data{
			"page_id":  page.ID,
			"user_id":  teacherID,
			"question": fmt.Sprintf("%s: %s Which of these is true?", title, lorem.Sentence(4, 12)),
			"answers":  []string{"It happens in every living thing", "It only happens at night", "None of the above"},
			"answer":   "It happens in every living thing",
		}); err != nil {
			return oops.New(err, "failed to create mcq")
		}
	}

	fmt.Println("Done! Every user's password is", SamplePassword)
	return nil
}
