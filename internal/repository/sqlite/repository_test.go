package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/repository"
	"github.com/vytor/quizkeeper/internal/repository/sqlite"
	"github.com/vytor/quizkeeper/internal/testutil"
)

type RepositorySuite struct {
	suite.Suite
	db          *sql.DB
	subjects    repository.SubjectRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	chapterID   int64
}

func (s *RepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.subjects = sqlite.NewSubjectRepository(s.db)
	s.questions = sqlite.NewQuestionRepository(s.db)
	s.submissions = sqlite.NewSubmissionRepository(s.db)
	s.chapterID = testutil.SeedChapter(s.T(), s.db, "Physics", "Optics", 60)
}

func (s *RepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *RepositorySuite) TestSubjectsAndChapters() {
	ctx := context.Background()
	testutil.SeedChapter(s.T(), s.db, "Physics", "Mechanics", 1)
	testutil.SeedChapter(s.T(), s.db, "Biology", "Cells", 1)

	subjects, err := s.subjects.ListSubjects(ctx)
	s.Require().NoError(err)
	s.Require().Len(subjects, 2)
	s.Assert().Equal("Biology", subjects[0].Name)
	s.Assert().Equal("Physics", subjects[1].Name)

	chapters, err := s.subjects.ListChapters(ctx, subjects[1].ID)
	s.Require().NoError(err)
	s.Require().Len(chapters, 2)
	s.Assert().Equal("Optics", chapters[0].Name)
	s.Assert().Equal("Mechanics", chapters[1].Name)

	ch, err := s.subjects.GetChapter(ctx, s.chapterID)
	s.Require().NoError(err)
	s.Assert().Equal("Optics", ch.Name)

	subject, err := s.subjects.GetSubject(ctx, ch.SubjectID)
	s.Require().NoError(err)
	s.Assert().Equal("Physics", subject.Name)
}

func (s *RepositorySuite) TestGetMissing() {
	ctx := context.Background()
	ch, err := s.subjects.GetChapter(ctx, 99999)
	s.Assert().NoError(err)
	s.Assert().Nil(ch)

	subject, err := s.subjects.GetSubject(ctx, 99999)
	s.Assert().NoError(err)
	s.Assert().Nil(subject)

	sub, err := s.submissions.Get(ctx, "missing")
	s.Assert().NoError(err)
	s.Assert().Nil(sub)
}

func (s *RepositorySuite) TestSampleRespectsLimit() {
	ctx := context.Background()

	qs, err := s.questions.Sample(ctx, s.chapterID, 50)
	s.Require().NoError(err)
	s.Assert().Len(qs, 50)

	seen := map[int64]bool{}
	for _, q := range qs {
		s.Assert().False(seen[q.ID], "question %d sampled twice", q.ID)
		seen[q.ID] = true
		s.Assert().Equal(s.chapterID, q.ChapterID)
		s.Assert().Equal("A", q.CorrectOption)
	}

	all, err := s.questions.Sample(ctx, s.chapterID, 0)
	s.Require().NoError(err)
	s.Assert().Len(all, 60)

	n, err := s.questions.CountByChapter(ctx, s.chapterID)
	s.Require().NoError(err)
	s.Assert().Equal(60, n)
}

func (s *RepositorySuite) TestSubmissionRoundTrip() {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 45, 0, 0, time.UTC)
	sub := models.Submission{
		ID:          "6f1c1c9e-6f3b-4b8e-9d54-0c1a3e7b2a11",
		ChapterID:   s.chapterID,
		Name:        "Jane",
		Answers:     map[string]string{"1": "B", "7": "D"},
		Reason:      models.ReasonExpired,
		SubmittedAt: at,
	}
	s.Require().NoError(s.submissions.Insert(ctx, sub))

	got, err := s.submissions.Get(ctx, sub.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Assert().Equal("Jane", got.Name)
	s.Assert().Equal(sub.Answers, got.Answers)
	s.Assert().Equal(models.ReasonExpired, got.Reason)
	s.Assert().True(at.Equal(got.SubmittedAt))

	list, err := s.submissions.ListByChapter(ctx, s.chapterID, 10)
	s.Require().NoError(err)
	s.Assert().Len(list, 1)
}

func (s *RepositorySuite) TestSubmissionDuplicate() {
	ctx := context.Background()
	sub := models.Submission{ID: "dup", ChapterID: s.chapterID, Name: "Jane", Answers: map[string]string{}, Reason: models.ReasonManual, SubmittedAt: time.Now()}
	s.Require().NoError(s.submissions.Insert(ctx, sub))

	err := s.submissions.Insert(ctx, sub)
	s.Assert().ErrorIs(err, repository.ErrDuplicate)
}

func (s *RepositorySuite) TestSubmissionRejectsUnknownReason() {
	ctx := context.Background()
	sub := models.Submission{ID: "r", ChapterID: s.chapterID, Name: "Jane", Answers: map[string]string{}, Reason: "timeout", SubmittedAt: time.Now()}
	s.Assert().Error(s.submissions.Insert(ctx, sub))
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}
