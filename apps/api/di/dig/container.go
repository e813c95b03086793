// Package digcontainer wires the API dependencies with go.uber.org/dig.
package digcontainer

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/auth"
	"github.com/trezcool/campus/core/chat"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/grade"
	"github.com/trezcool/campus/core/group"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/notification"
	"github.com/trezcool/campus/core/subject"
	"github.com/trezcool/campus/core/task"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Database is the storage selected by `database.engine`: exactly one of SQL or Memory is set.
type Database struct {
	SQL    *sqlx.DB
	Memory *inmemdb.DB
}

func (d *Database) Close() error {
	if d.SQL != nil {
		return d.SQL.Close()
	}
	return nil
}

type repositories struct {
	dig.Out
	Users         user.Repository
	Groups        group.Repository
	Subjects      subject.Repository
	Lessons       lesson.Repository
	Tasks         task.Repository
	Grades        grade.Repository
	Events        event.Repository
	Chats         chat.Repository
	Notifications notification.Repository
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	ZapLogger  *zap.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	AuthSvc         auth.Service
	UserSvc         user.Service
	GroupSvc        group.Service
	SubjectSvc      subject.Service
	LessonSvc       lesson.Service
	TaskSvc         task.Service
	GradeSvc        grade.Service
	GradeBook       grade.GradeBook
	EventSvc        event.Service
	ChatSvc         chat.Service
	NotificationSvc notification.Service
}

func newZapLogger(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZapLogger(conf)
}

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newDatabase(conf *core.Config, loggerParam DBLoggerParam) (*Database, error) {
	logger := loggerParam.Logger

	switch conf.Database.Engine {
	case EngineMemory:
		logger.Warn("using the in-memory database: data is lost on shutdown")
		return &Database{Memory: inmemdb.NewDB()}, nil

	case EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(context.Background(), db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info(fmt.Sprintf("connected to database %q at %s", conf.Database.Name, conf.Database.Address()))
		return &Database{SQL: db}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func newRepositories(db *Database) repositories {
	if db.SQL != nil {
		return repositories{
			Users:         sqlxrepos.NewUserRepository(db.SQL),
			Groups:        sqlxrepos.NewGroupRepository(db.SQL),
			Subjects:      sqlxrepos.NewSubjectRepository(db.SQL),
			Lessons:       sqlxrepos.NewLessonRepository(db.SQL),
			Tasks:         sqlxrepos.NewTaskRepository(db.SQL),
			Grades:        sqlxrepos.NewGradeRepository(db.SQL),
			Events:        sqlxrepos.NewEventRepository(db.SQL),
			Chats:         sqlxrepos.NewChatRepository(db.SQL),
			Notifications: sqlxrepos.NewNotificationRepository(db.SQL),
		}
	}
	return repositories{
		Users:         inmemdb.NewUserRepository(db.Memory),
		Groups:        inmemdb.NewGroupRepository(db.Memory),
		Subjects:      inmemdb.NewSubjectRepository(db.Memory),
		Lessons:       inmemdb.NewLessonRepository(db.Memory),
		Tasks:         inmemdb.NewTaskRepository(db.Memory),
		Grades:        inmemdb.NewGradeRepository(db.Memory),
		Events:        inmemdb.NewEventRepository(db.Memory),
		Chats:         inmemdb.NewChatRepository(db.Memory),
		Notifications: inmemdb.NewNotificationRepository(db.Memory),
	}
}

func newValidator() *validator.Validate {
	return validator.New()
}

func newServerDeps(p serverParams) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		ZapLogger:       p.ZapLogger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		AuthSvc:         p.AuthSvc,
		UserSvc:         p.UserSvc,
		GroupSvc:        p.GroupSvc,
		SubjectSvc:      p.SubjectSvc,
		LessonSvc:       p.LessonSvc,
		TaskSvc:         p.TaskSvc,
		GradeSvc:        p.GradeSvc,
		GradeBook:       p.GradeBook,
		EventSvc:        p.EventSvc,
		ChatSvc:         p.ChatSvc,
		NotificationSvc: p.NotificationSvc,
	}
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDatabase))
	must(c.Provide(newRepositories))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(lesson.NewService))
	must(c.Provide(task.NewService))
	must(c.Provide(group.NewService))
	must(c.Provide(grade.NewService))
	must(c.Provide(grade.NewGradeBook))
	must(c.Provide(event.NewService))
	must(c.Provide(chat.NewService))
	must(c.Provide(auth.NewService))

	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
