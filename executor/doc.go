// Package executor runs WASI guest modules under wazero with host function
// access.
//
// The guest's stderr is attached to a [bridge.Bridge] and its stdin receives
// the bridge's answers, so a guest can call asynchronous host functions such
// as helloAsync and wait for their callbacks. Calls are served on a loop
// created for the run; the run ends when the guest exits and the loop has
// drained.
//
// # Basic Usage
//
//	registry := hostfunc.NewRegistry()
//	standalone.Register(registry)
//
//	exec, err := executor.New(registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	guest, err := executor.LoadGuest("guest.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result := exec.Run(ctx, guest, executor.WithTimeout(5*time.Second))
//	fmt.Println(result.Output)
//
// Compiled modules are cached per guest name for the Executor's lifetime;
// [WithDiskCache] persists them across processes.
package executor
