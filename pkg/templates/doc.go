// Package templates loads animation templates from a directory or from
// memory and keeps them current.
//
// A Manager reloads its Source into a Registry. Only templates that pass
// validation are registered; a broken edit keeps the previous version
// serving. Changed and removed templates are handed to an Invalidator,
// normally the animation selector, so their compiled forms and cached
// variables are dropped.
//
// In watch mode a Watcher reports bursts of file events (debounced) and the
// manager reloads:
//
//	source := templates.NewDirSource(cfg.Templates.Directory, templates.NewLoader(cfg.Templates.MaxFileSize))
//	mgr := templates.NewManager(source, templates.WithInvalidator(sel))
//	if _, err := mgr.Reload(ctx); err != nil { ... }
//	w, _ := templates.NewWatcher(cfg.Templates.Directory, cfg.Templates.Debounce, logger)
//	defer w.Close()
//	mgr.Watch(ctx, w, nil)
package templates
