// Package service exposes the manual operations of the energy manager. Every
// operation takes the calling Actor explicitly.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrExportDisabled = errors.New("usage export is not configured")
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Admin  bool
}

func (a Actor) canManage(d domain.Device) bool {
	return a.Admin || d.OwnedBy(a.UserID)
}

func (a Actor) requireAdmin() error {
	if !a.Admin {
		return fmt.Errorf("admin role required: %w", ErrForbidden)
	}
	return nil
}

// Settings are the tunables the services read from configuration.
type Settings struct {
	EnergyRate                float64
	DefaultPolicyThresholdKWh float64
	UsageMediumKWh            float64
	UsageHighKWh              float64
	PeakDeviceKWh             float64
	PeakUserKWh               float64
}

type Services struct {
	Repos     *repository.Repos
	Users     *UserService
	Devices   *DeviceService
	Schedules *ScheduleService
	Policies  *PolicyService
	Energy    *EnergyService
	Exports   *ExportService
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repos    *repository.Repos
	Registry *engine.Registry
	Ledger   *engine.Ledger
	Enforcer *engine.Enforcer
	Clock    clock.Clock
	Uploader UsageUploader
	Log      zerolog.Logger
}

func New(deps Deps, settings Settings) *Services {
	energy := &EnergyService{
		repos:    deps.Repos,
		ledger:   deps.Ledger,
		clock:    deps.Clock,
		settings: settings,
	}
	return &Services{
		Repos: deps.Repos,
		Users: &UserService{repos: deps.Repos, clock: deps.Clock},
		Devices: &DeviceService{
			repos:    deps.Repos,
			registry: deps.Registry,
			energy:   energy,
			log:      deps.Log,
		},
		Schedules: &ScheduleService{repos: deps.Repos, registry: deps.Registry},
		Policies: &PolicyService{
			repos:    deps.Repos,
			enforcer: deps.Enforcer,
			clock:    deps.Clock,
			settings: settings,
		},
		Energy: energy,
		Exports: &ExportService{
			repos:    deps.Repos,
			clock:    deps.Clock,
			uploader: deps.Uploader,
			log:      deps.Log,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check runs struct validation and turns the first failure into a
// domain.ValidationError.
func check(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return domain.Invalid(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return domain.Invalid(fmt.Sprintf("%s must be a valid email", fe.Field()))
	case "gt":
		return domain.Invalid(fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
	case "max":
		return domain.Invalid(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "oneof":
		return domain.Invalid(fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
	default:
		return domain.Invalid(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
