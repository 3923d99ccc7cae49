// Package config loads and validates the daemon configuration.
//
// Values layer in order: built-in defaults, the YAML file, then
// SCANPOINT_* environment variables. The merged result is validated
// before use so misconfiguration fails at startup rather than mid-run.
//
// Secrets (broker credentials, tokens, the admin password hash) should
// come from the environment rather than the file, and the file itself
// should carry restricted permissions. The JWT secret has no default
// and must always be provided.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
