// Package process supervises a long-running child process and streams its
// stdout line by line.
//
// The RF service uses it to run a local receiver program (an SDR or GPIO
// sampler in raw mode) that prints one pulse train per line.
//
// Features:
//   - Start/stop with graceful shutdown of the whole process group
//   - Automatic restart with exponential backoff
//   - Idle watchdog that restarts a receiver that has gone silent
//   - stdout lines delivered to a callback, stderr logged
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:             "rx-attic",
//	    Binary:           "/usr/local/bin/rf-sampler",
//	    Args:             []string{"--raw", "--gpio=27"},
//	    RestartOnFailure: true,
//	    OnLine:           handleLine,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
