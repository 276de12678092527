// Package config resolves the layered rsbuild configuration.
//
// Configuration is merged from partial fragments in a fixed, non-negotiable
// precedence order:
//
//	framework defaults < server-injected overrides < tool-declared overrides
//
// Fragments are plain maps; DeepMerge combines nested maps key-wise,
// replaces arrays wholesale, and lets defined override leaves win.
// DeepMergeConcat is the concatenating array variant. The merge function is
// caller-supplied; calling Merge without one fails fast (E110) rather than
// silently picking a strategy.
//
// The merged fragment is decoded into the typed Config with mapstructure
// and validated with go-playground/validator. After Resolve returns, every
// field downstream components read has a defined value.
//
// Env files (.env, .env.local, .env.<mode>, .env.<mode>.local) are parsed
// with gotenv; the orchestrator consumes only the resulting key/value map
// and the source file list.
package config
