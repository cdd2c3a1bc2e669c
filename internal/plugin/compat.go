package plugin

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-hclog"
)

// CheckCompatibility validates a descriptor's runtime constraint and host
// version bounds against env. It has no side effects besides logging the
// warning for an undeclared runtime section. Every rejection is an
// *IncompatibleError naming the violated bound.
func CheckCompatibility(desc *Descriptor, env Environment, log hclog.Logger) error {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	runtime := desc.Runtime
	if !desc.RuntimeDeclared || runtime == "" {
		log.Warn("plugin has no runtime section, assuming it runs only under runtime 2",
			"plugin", desc.Name)
		runtime = DefaultRuntime
	}

	if !runtimeAdmits(runtime, env.RuntimeMajor) {
		return &IncompatibleError{
			Plugin:   desc.Name,
			Bound:    BoundRuntime,
			Required: runtime,
			Current:  strconv.Itoa(env.RuntimeMajor),
		}
	}

	if desc.MinVersion == "" && desc.MaxVersion == "" {
		return nil
	}

	current, err := ParseVersion(env.HostVersion)
	if err != nil {
		return fmt.Errorf("parsing host version: %w", err)
	}

	if desc.MinVersion != "" {
		minV, err := ParseVersion(desc.MinVersion)
		if err != nil {
			return &IncompatibleError{Plugin: desc.Name, Bound: BoundMinVersion, Required: desc.MinVersion, Current: env.HostVersion}
		}
		if CompareArrays(minV, current) > 0 {
			return &IncompatibleError{Plugin: desc.Name, Bound: BoundMinVersion, Required: desc.MinVersion, Current: env.HostVersion}
		}
	}

	if desc.MaxVersion != "" {
		maxV, err := ParseVersion(desc.MaxVersion)
		if err != nil {
			return &IncompatibleError{Plugin: desc.Name, Bound: BoundMaxVersion, Required: desc.MaxVersion, Current: env.HostVersion}
		}
		if CompareArrays(maxV, current) < 0 {
			return &IncompatibleError{Plugin: desc.Name, Bound: BoundMaxVersion, Required: desc.MaxVersion, Current: env.HostVersion}
		}
	}

	return nil
}

// runtimeAdmits reports whether constraint accepts the running major.
// Unknown constraints admit nothing.
func runtimeAdmits(constraint string, major int) bool {
	switch constraint {
	case Runtime2:
		return major == 2
	case Runtime2Plus:
		return major >= 2
	case Runtime3:
		return major == 3
	default:
		return false
	}
}
