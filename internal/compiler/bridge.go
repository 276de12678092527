package compiler

// bridgeName identifies the dev server's registrations on a compiler.
const bridgeName = "rsbuild-dev-server"

// BindDevServer adapts a compiler's lifecycle events into the dev server's
// notion of "build in progress" / "build finished": both compile-started and
// invalidation mark the output invalid, and a finished compilation reports
// done with its stats.
//
// A server-role compiler is excluded: it does not drive client-facing
// notifications. The bridge performs no sequencing of its own and must be
// applied at most once per compiler per lifecycle run; idempotence is the
// caller's responsibility.
func BindDevServer(inst Instance, onInvalid func(), onDone func(Stats)) {
	if inst.Role == RoleServer || inst.Compiler == nil {
		return
	}

	c := inst.Compiler
	c.OnCompile(bridgeName, onInvalid)
	c.OnInvalid(bridgeName, onInvalid)
	c.OnDone(bridgeName, onDone)
}
