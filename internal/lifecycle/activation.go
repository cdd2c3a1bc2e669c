package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/plugkeep/plugkeep/internal/deps"
	"github.com/plugkeep/plugkeep/internal/host"
	"github.com/plugkeep/plugkeep/internal/manifest"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

// Activate runs the full gate sequence for name with its persisted
// configuration.
func (m *Manager) Activate(ctx context.Context, name string) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cfg, err := m.configs.Get(name)
	if err != nil {
		return Result{}, err
	}
	return m.activateLocked(ctx, name, cfg)
}

// ActivateWithConfig is Activate with an explicit configuration instead of
// the persisted one.
func (m *Manager) ActivateWithConfig(ctx context.Context, name string, cfg plugin.Config) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.activateLocked(ctx, name, cfg)
}

func (m *Manager) activateLocked(ctx context.Context, name string, cfg plugin.Config) (Result, error) {
	inst, ok := m.lookup(name)
	if !ok {
		return Result{Message: fmt.Sprintf("I don't know this %s plugin", name)}, &plugin.NotFoundError{Kind: "plugin", Name: name}
	}
	if inst.state == plugin.StateActivated {
		return Result{Message: "Plugin already in active list", Already: true, Plugin: inst.live}, nil
	}

	p, err := m.gate(name, inst, cfg)
	if err != nil {
		m.publish(inst, func(i *instance) { i.lastErr = err })
		return failed(name, err), err
	}

	if err := m.attachSideEffects(ctx, inst, p); err != nil {
		return failed(name, err), err
	}

	m.publish(inst, func(i *instance) {
		i.state = plugin.StateActivated
		i.live = p
		i.lastErr = nil
	})
	m.log.Info("plugin activated", "plugin", name)
	return Result{Message: fmt.Sprintf("Plugin %s activated", name), Plugin: p}, nil
}

// gate runs the checks that happen before any host side effect:
// compatibility, construction and configuration. On success the instance
// is Validated and holds the applied configuration. On failure the state
// is left as it was.
func (m *Manager) gate(name string, inst *instance, cfg plugin.Config) (plugin.Plugin, error) {
	log := m.log.With("plugin", name)
	desc := inst.desc

	log.Info("activating", "min_version", desc.MinVersion, "max_version", desc.MaxVersion)
	if err := plugin.CheckCompatibility(desc, m.opts.Environment, log); err != nil {
		log.Error("plugin is incompatible", "error", err)
		return nil, err
	}

	p, err := m.construct(desc)
	if err != nil {
		log.Error("could not construct plugin", "error", err)
		return nil, &plugin.ActivationError{Plugin: name, Stage: plugin.StageLoad, Err: err}
	}
	p.Attach(host.NewContext(name, m.opts.Environment.HostVersion, m.opts.DataDir, m.log))

	applied, err := plugin.ValidateConfig(desc, cfg)
	if err == nil {
		err = guard(func() error { return p.Configure(applied) })
	}
	if err != nil {
		var ce *plugin.ConfigurationError
		if !errors.As(err, &ce) {
			err = &plugin.ConfigurationError{Plugin: name, Err: err}
		}
		log.Error("something is wrong with the configuration of the plugin", "error", err)
		m.publish(inst, func(i *instance) { i.config = nil })
		discard(p)
		return nil, err
	}

	m.publish(inst, func(i *instance) {
		i.state = plugin.StateValidated
		i.config = applied
	})
	return p, nil
}

// construct asks the descriptor's loader for a fresh instance.
func (m *Manager) construct(desc *plugin.Descriptor) (p plugin.Plugin, err error) {
	loader, ok := m.opts.Loaders[desc.Kind]
	if !ok {
		return nil, fmt.Errorf("no loader for plugin kind %q", desc.Kind)
	}
	err = guard(func() error {
		var loadErr error
		p, loadErr = loader.Load(desc)
		return loadErr
	})
	if err == nil && p == nil {
		err = errors.New("loader returned no plugin")
	}
	return p, err
}

// attachSideEffects registers the templates path, runs the activate hook
// and routes the plugin. Any failure undoes all three and marks the
// instance Failed.
func (m *Manager) attachSideEffects(ctx context.Context, inst *instance, p plugin.Plugin) error {
	name := inst.desc.Name
	templates := inst.desc.TemplatesPath

	if templates != "" {
		if _, err := os.Stat(templates); err != nil {
			return m.rollback(ctx, inst, p, plugin.StageTemplates, err)
		}
		m.opts.Templates.Add(templates)
	}

	if err := guard(func() error { return p.Activate(ctx) }); err != nil {
		return m.rollback(ctx, inst, p, plugin.StageActivate, plugin.WrapContextErr(ctx, "activating "+name, err))
	}

	if err := m.opts.Router.Route(name, p); err != nil {
		return m.rollback(ctx, inst, p, plugin.StageRoute, err)
	}
	return nil
}

func (m *Manager) rollback(ctx context.Context, inst *instance, p plugin.Plugin, stage string, cause error) error {
	name := inst.desc.Name
	m.log.Error("plugin failed at activation stage, deactivating it", "plugin", name, "stage", stage, "error", cause)

	if inst.desc.TemplatesPath != "" {
		m.opts.Templates.Remove(inst.desc.TemplatesPath)
	}
	m.opts.Router.Unroute(name)
	if err := guard(func() error { return p.Deactivate(ctx) }); err != nil {
		m.log.Warn("deactivate hook failed during rollback", "plugin", name, "error", err)
	}
	discard(p)

	err := &plugin.ActivationError{Plugin: name, Stage: stage, Err: cause}
	m.publish(inst, func(i *instance) {
		i.state = plugin.StateFailed
		i.live = nil
		i.lastErr = err
	})
	return err
}

// Deactivate stops an activated plugin and unregisters it from the host.
func (m *Manager) Deactivate(ctx context.Context, name string) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	inst, ok := m.lookup(name)
	if !ok {
		return Result{Message: fmt.Sprintf("I don't know this %s plugin", name)}, &plugin.NotFoundError{Kind: "plugin", Name: name}
	}
	return m.deactivateLocked(ctx, inst)
}

func (m *Manager) deactivateLocked(ctx context.Context, inst *instance) (Result, error) {
	name := inst.desc.Name
	if inst.state != plugin.StateActivated {
		return Result{Message: fmt.Sprintf("Plugin %s not in active list", name), Already: true}, nil
	}

	p := inst.live
	templates := inst.desc.TemplatesPath
	if templates != "" {
		m.opts.Templates.Remove(templates)
	}
	m.opts.Router.Unroute(name)

	if err := guard(func() error { return p.Deactivate(ctx) }); err != nil {
		if templates != "" {
			m.opts.Templates.Add(templates)
		}
		if rerr := m.opts.Router.Route(name, p); rerr != nil {
			m.log.Error("could not restore routes after failed deactivation", "plugin", name, "error", rerr)
		}
		err = plugin.WrapContextErr(ctx, "deactivating "+name, err)
		m.log.Error("plugin deactivation failed", "plugin", name, "error", err)
		m.publish(inst, func(i *instance) { i.lastErr = err })
		return Result{Message: fmt.Sprintf("%s failed to stop : %v", name, err)}, fmt.Errorf("deactivating %s: %w", name, err)
	}

	m.publish(inst, func(i *instance) {
		i.state = plugin.StateDeactivated
		i.live = nil
	})
	m.log.Info("plugin deactivated", "plugin", name)
	return Result{Message: fmt.Sprintf("Plugin %s deactivated", name)}, nil
}

// Reload rebuilds a plugin from disk: it is deactivated if needed, its
// descriptor is re-read, and it is activated again with the persisted
// configuration if it was active before.
func (m *Manager) Reload(ctx context.Context, name string) (Result, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	inst, ok := m.lookup(name)
	if !ok {
		return Result{Message: fmt.Sprintf("I don't know this %s plugin", name)}, &plugin.NotFoundError{Kind: "plugin", Name: name}
	}

	wasActive := inst.state == plugin.StateActivated
	if wasActive {
		if res, err := m.deactivateLocked(ctx, inst); err != nil {
			return res, err
		}
	}

	desc, err := m.reread(inst.desc)
	if err != nil {
		m.log.Error("could not reload plugin", "plugin", name, "error", err)
		m.publish(inst, func(i *instance) { i.lastErr = err })
		return Result{Message: fmt.Sprintf("%s failed to reload : %v", name, err)}, err
	}

	fresh := &instance{desc: desc, state: plugin.StateDiscovered}
	m.mu.Lock()
	m.instances[name] = fresh
	m.mu.Unlock()

	if !wasActive {
		return Result{Message: fmt.Sprintf("Plugin %s reloaded", name)}, nil
	}

	cfg, err := m.configs.Get(name)
	if err != nil {
		return Result{}, err
	}
	res, err := m.activateLocked(ctx, name, cfg)
	if err != nil {
		return res, err
	}
	res.Message = fmt.Sprintf("Plugin %s reloaded and activated", name)
	return res, nil
}

// reread loads the descriptor of old from disk and pre-checks it the way a
// scan would.
func (m *Manager) reread(old *plugin.Descriptor) (*plugin.Descriptor, error) {
	desc, err := manifest.Load(old.ManifestPath)
	if err != nil {
		return nil, err
	}
	if desc.Name != old.Name {
		return nil, fmt.Errorf("plugin %s was renamed to %s on disk; run a scan instead", old.Name, desc.Name)
	}
	loader, ok := m.opts.Loaders[desc.Kind]
	if !ok {
		return nil, fmt.Errorf("no loader for plugin kind %q", desc.Kind)
	}
	if err := guard(func() error { return loader.Check(desc) }); err != nil {
		return nil, err
	}
	if desc.Requirements, err = deps.ReadRequirements(desc.Path); err != nil {
		return nil, err
	}
	return desc, nil
}

// ActivateNonStarted activates every plugin that is neither active nor
// blacklisted, using the persisted configurations. The report has one
// line per blacklisted or failing plugin; the error joins the failures.
func (m *Manager) ActivateNonStarted(ctx context.Context) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.log.Info("activating all the plugins")
	configs, err := m.configs.All()
	if err != nil {
		return "", err
	}

	var report string
	var errs []error
	for _, name := range m.Names() {
		blacklisted, err := m.blacklist.Contains(name)
		if err != nil {
			return report, err
		}
		if blacklisted {
			report += fmt.Sprintf("Notice: %s is blacklisted, use %sunblacklist %s to unblacklist it\n", name, m.opts.CommandPrefix, name)
			continue
		}
		inst, ok := m.lookup(name)
		if !ok || inst.state == plugin.StateActivated {
			continue
		}
		if _, err := m.activateLocked(ctx, name, configs[name]); err != nil {
			m.log.Error("error loading plugin", "plugin", name, "error", err)
			report += fmt.Sprintf("Error: %s failed to start : %v\n", name, err)
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// DeactivateAll stops every active plugin in reverse name order.
func (m *Manager) DeactivateAll(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	active := m.ListActive()
	var errs []error
	for i := len(active) - 1; i >= 0; i-- {
		inst, ok := m.lookup(active[i])
		if !ok {
			continue
		}
		if _, err := m.deactivateLocked(ctx, inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func failed(name string, err error) Result {
	return Result{Message: fmt.Sprintf("%s failed to start : %v", name, err)}
}

// guard turns a panic in plugin code into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin panicked: %v", r)
		}
	}()
	return fn()
}

// discard releases a plugin that never became (or no longer is) active.
func discard(p plugin.Plugin) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
