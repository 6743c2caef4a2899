package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-containerregistry/pkg/name"

	"github.com/projecteru2/debridctl/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a StackConfig before anything is rendered from it. The
// returned error is an input failure listing every offending field; the
// credential value is never included.
func Validate(cfg *types.StackConfig) error {
	var problems []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &types.Error{Kind: types.KindInput, Op: "validate stack config", Err: err}
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	for _, id := range cfg.Services() {
		svc, ok := types.Lookup(id)
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown service %q", id))
			continue
		}
		if _, err := name.ParseReference(svc.Image); err != nil {
			problems = append(problems, fmt.Sprintf("service %s image %q: %v", id, svc.Image, err))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &types.Error{
		Kind:   types.KindInput,
		Op:     "validate stack config",
		Err:    errors.New(strings.Join(problems, "; ")),
		Remedy: "re-run and correct the listed answers",
	}
}

// ValidateAddress accepts an IP address or hostname.
func ValidateAddress(s string) error {
	return validateVar(s, "required,ip|hostname", "an IP address or hostname")
}

// ValidateTimezone accepts IANA zone names such as Europe/Berlin.
func ValidateTimezone(s string) error {
	return validateVar(s, "required,timezone", "an IANA timezone such as Europe/Berlin")
}

// ValidateSchedule accepts a cron expression.
func ValidateSchedule(s string) error {
	return validateVar(s, "required,cron", "a cron expression such as \"0 0 4 * * *\"")
}

// ValidateURL accepts an empty string or an absolute URL.
func ValidateURL(s string) error {
	return validateVar(s, "omitempty,url", "a URL")
}

func validateVar(s, tag, want string) error {
	if err := validate.Var(s, tag); err != nil {
		return fmt.Errorf("%q is not %s", s, want)
	}
	return nil
}
