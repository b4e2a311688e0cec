package testfixtures

import (
	"log/slog"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/recurrence"
	"github.com/example/shift-scheduler/internal/session"
)

// TestSessionSecret is a signing key long enough for session.NewIssuer.
const TestSessionSecret = "test-session-secret-0123456789abcdef"

// PlainPINHasher stores PINs as "hash:<pin>" so tests avoid the Argon2id cost.
func PlainPINHasher(pin string) (string, error) {
	return "hash:" + pin, nil
}

// PlainPINVerifier is the counterpart of PlainPINHasher.
func PlainPINVerifier(hashedPIN, pin string) error {
	stored, ok := strings.CutPrefix(hashedPIN, "hash:")
	if !ok {
		return application.ErrInvalidPINHash
	}
	if stored != pin {
		return application.ErrInvalidCredentials
	}
	return nil
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) ids(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) now(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// WorkplaceServiceDeps captures dependencies for constructing a workplace service.
type WorkplaceServiceDeps struct {
	Workplaces  application.WorkplaceRepository
	Shifts      application.ShiftCounter
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewWorkplaceService builds a workplace service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewWorkplaceService(deps WorkplaceServiceDeps) *application.WorkplaceService {
	return application.NewWorkplaceServiceWithLogger(
		deps.Workplaces,
		deps.Shifts,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// ShiftServiceDeps captures dependencies for constructing a shift service.
type ShiftServiceDeps struct {
	Shifts      application.ShiftRepository
	Workplaces  application.WorkplaceLister
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewShiftService builds a shift service that evaluates "today" in the clock
// location.
func (f *ServiceFactory) NewShiftService(deps ShiftServiceDeps) *application.ShiftService {
	return application.NewShiftServiceWithLogger(
		deps.Shifts,
		deps.Workplaces,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		f.Clock.Location(),
		deps.Logger,
	)
}

// RuleServiceDeps captures dependencies for constructing a rule service.
type RuleServiceDeps struct {
	Rules       application.RuleRepository
	Shifts      application.ShiftRepository
	Workplaces  application.WorkplaceLister
	IDGenerator func() string
	Now         func() time.Time
	Observer    application.RuleObserver
	Logger      *slog.Logger
}

// NewRuleService builds a rule service whose engine draws identifiers from
// the factory generator.
func (f *ServiceFactory) NewRuleService(deps RuleServiceDeps) *application.RuleService {
	return application.NewRuleServiceWithOptions(
		deps.Rules,
		deps.Shifts,
		deps.Workplaces,
		recurrence.NewEngine(f.ids(deps.IDGenerator)),
		f.now(deps.Now),
		application.RuleServiceOptions{
			Location: f.Clock.Location(),
			Observer: deps.Observer,
			Logger:   deps.Logger,
		},
	)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserRepository
	HashPIN     application.PINHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewUserService builds a user service. PINs are hashed with PlainPINHasher
// unless deps.HashPIN is set.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	hash := deps.HashPIN
	if hash == nil {
		hash = PlainPINHasher
	}
	return application.NewUserServiceWithLogger(
		deps.Users,
		hash,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials application.CredentialStore
	Tokens      application.TokenIssuer
	VerifyPIN   application.PINVerifier
	SessionTTL  time.Duration
	Logger      *slog.Logger
}

// NewAuthService builds an auth service. Without deps.Tokens a session issuer
// signed with TestSessionSecret and driven by the factory clock is used.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) (*application.AuthService, error) {
	tokens := deps.Tokens
	if tokens == nil {
		ttl := deps.SessionTTL
		if ttl <= 0 {
			ttl = 12 * time.Hour
		}
		issuer, err := session.NewIssuerWithClock(session.Config{SecretKey: TestSessionSecret, Duration: ttl}, f.Clock.NowFunc())
		if err != nil {
			return nil, err
		}
		tokens = issuer
	}
	verify := deps.VerifyPIN
	if verify == nil {
		verify = PlainPINVerifier
	}
	return application.NewAuthServiceWithLogger(deps.Credentials, tokens, verify, deps.Logger), nil
}
