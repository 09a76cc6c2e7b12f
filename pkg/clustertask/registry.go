package clustertask

// registry maps a task's wire Kind to a constructor producing a zero-valued
// instance of the concrete type, so an incoming HTTP request body can be
// decoded into the right struct before Execute runs.
var registry = map[string]func() Task{
	"FindState":          func() Task { return &FindStateTask{} },
	"FindOrCreateState":  func() Task { return &FindOrCreateStateTask{} },
	"RemoveState":        func() Task { return &RemoveStateTask{} },
	"GrantAccess":        func() Task { return &GrantAccessTask{} },
	"ReleaseAccess":      func() Task { return &ReleaseAccessTask{} },
	"AddOpLock":          func() Task { return &AddOpLockTask{} },
	"ClearOpLock":        func() Task { return &ClearOpLockTask{} },
	"ChangeOpLockType":   func() Task { return &ChangeOpLockTypeTask{} },
	"RemoveOpLockOwner":  func() Task { return &RemoveOpLockOwnerTask{} },
	"AddByteLock":        func() Task { return &AddByteLockTask{} },
	"RemoveByteLock":     func() Task { return &RemoveByteLockTask{} },
	"TestByteLock":       func() Task { return &TestByteLockTask{} },
	"CheckByteAccess":    func() Task { return &CheckByteAccessTask{} },
	"UpdateFileStatus":   func() Task { return &UpdateFileStatusTask{} },
	"FileDataUpdate":     func() Task { return &FileDataUpdateTask{} },
	"Rename":             func() Task { return &RenameTask{} },
}

// newByKind returns a fresh zero-valued Task for the given wire kind, or
// nil if the kind is unknown.
func newByKind(kind string) Task {
	ctor, ok := registry[kind]
	if !ok {
		return nil
	}
	return ctor()
}
