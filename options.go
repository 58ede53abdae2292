package jsnapshot

// SaveOption bits control Save's behavior (spec §4.1/§4.2).
type SaveOption uint32

const (
	// SaveStatic requests the static save-walker (C4): no regexp literals
	// and no literal pool - every constant literal must already be direct
	// or direct-string.
	SaveStatic SaveOption = 1 << 0

	saveSupportedOptions = SaveStatic
)

func validateSaveOptions(opts SaveOption) error {
	if opts&^saveSupportedOptions != 0 {
		return newError(KindRange, "unsupported flags")
	}
	return nil
}

// ExecOption bits control Exec's behavior (spec §4.4).
type ExecOption uint32

const (
	// ExecCopyData forces Load to copy every node's bytes out of the input
	// buffer rather than ever referencing it directly, so the caller may
	// free or mutate buf immediately after Exec/Load returns.
	ExecCopyData ExecOption = 1 << 0
	// ExecAllowStatic permits loading a static snapshot; without it, Load
	// rejects a snapshot whose root carries FlagStaticFunction.
	ExecAllowStatic ExecOption = 1 << 1
	// ExecLoadAsFunction skips script/global execution and instead returns
	// the root wrapped as a callable function object.
	ExecLoadAsFunction ExecOption = 1 << 2
	// ExecHasSourceName indicates UserValue (or a companion argument) is
	// the source name to attach to the executed script.
	ExecHasSourceName ExecOption = 1 << 3
	// ExecHasUserValue indicates a user value accompanies execution.
	ExecHasUserValue ExecOption = 1 << 4

	execSupportedOptions = ExecCopyData | ExecAllowStatic | ExecLoadAsFunction | ExecHasSourceName | ExecHasUserValue
)

func validateExecOptions(opts ExecOption) error {
	if opts&^execSupportedOptions != 0 {
		return newError(KindRange, "unsupported flags")
	}
	return nil
}
