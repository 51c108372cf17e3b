// Package kernel wires the service catalog, registry and dispatcher into one
// object that the CLI and the HTTP server share.
//
// Example Usage:
//
//	k, err := kernel.FromConfig(cfg, logger, metrics)
//	if err != nil {
//		return err
//	}
//	defer k.Close()
//	text, err := k.Complete(ctx, "Hello", "", types.Settings{})
package kernel
