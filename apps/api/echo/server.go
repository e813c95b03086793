package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

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
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		ZapLogger  *zap.Logger // request logs; disabled if nil
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

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if s.deps.ZapLogger != nil {
		s.app.Use(requestLoggerMiddleware(s.deps.ZapLogger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{conf.FrontendBaseURL},
		AllowCredentials: true,
	}))

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	authed := jwtMiddleware(s.deps.AuthSvc, s.deps.UserSvc, true /* otp verified */)
	pending := jwtMiddleware(s.deps.AuthSvc, s.deps.UserSvc, false)

	registerAuthAPI(v1, authed, pending, authRateLimiter(conf), s.deps)
	registerUserAPI(v1, authed, s.deps)
	registerGroupAPI(v1, authed, s.deps)
	registerSubjectAPI(v1, authed, s.deps)
	registerLessonAPI(v1, authed, s.deps)
	registerTaskAPI(v1, authed, s.deps)
	registerGradeAPI(v1, authed, s.deps)
	registerEventAPI(v1, authed, s.deps)
	registerChatAPI(v1, authed, s.deps)
	registerNotificationAPI(v1, authed, s.deps)
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
