package lock

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/lib/lockmgr"
	"github.com/spf13/cobra"
)

var (
	lockMgr lockmgr.ILockManager

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform session lock operations on document keys",
		PersistentPreRunE: setupLockClient,
	}

	holderCmd = &cobra.Command{
		Use:   "holder [key]",
		Short: "Print the session holding the lock of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runHolder,
	}

	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire the lock of a document",
		Long:  "Acquire the lock of a document. The printed session id is needed to renew or release the lock.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	renewCmd = &cobra.Command{
		Use:   "renew [key] [sessionID]",
		Short: "Refresh the lifetime of a session",
		Args:  cobra.ExactArgs(2),
		RunE:  runRenew,
	}

	releaseCmd = &cobra.Command{
		Use:   "release [key] [sessionID]",
		Short: "Release a previously acquired lock",
		Long:  "Release the lock of a document. With --steal the lock is removed whoever holds it and the session id may be omitted.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runRelease,
	}
)

func init() {
	util.SetupRPCClientFlags(LockCommands, 100)
	LockCommands.PersistentFlags().Duration("session-ttl", lockmgr.DefaultSessionTTL, util.WrapString("Lifetime of a session that is not renewed"))

	LockCommands.AddCommand(holderCmd)
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(renewCmd)
	LockCommands.AddCommand(releaseCmd)

	acquireCmd.Flags().Bool("steal", false, util.WrapString("Take over the lock even if another session holds it"))
	releaseCmd.Flags().Bool("steal", false, util.WrapString("Remove the lock even if another session holds it"))
}

// setupLockClient runs a lock manager on top of the remote shard
func setupLockClient(cmd *cobra.Command, _ []string) error {
	s, err := util.ConnectStore(cmd)
	if err != nil {
		return err
	}

	opts := lockmgr.DefaultOptions()
	opts.TTL, _ = cmd.Flags().GetDuration("session-ttl")
	lockMgr = lockmgr.NewLockManager(s, opts)
	return nil
}

func runHolder(cmd *cobra.Command, args []string) error {
	id, held, err := lockMgr.GetLockHolder(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("held=%t, session=%s\n", held, id)
	return nil
}

func runAcquire(cmd *cobra.Command, args []string) error {
	steal, _ := cmd.Flags().GetBool("steal")
	ttl, _ := cmd.Flags().GetDuration("session-ttl")

	session, err := lockMgr.TryAcquire(cmd.Context(), args[0], steal)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	fmt.Printf("acquired=true, session=%s, expires=%s\n", session.ID, time.Now().Add(ttl).Format(time.RFC3339))
	return nil
}

// checkSession rejects a session id that was issued for another key
func checkSession(key, sessionID string) error {
	lockKey, ok := lockmgr.SessionLockKey(sessionID)
	if !ok {
		return fmt.Errorf("invalid session id %q", sessionID)
	}
	if lockKey != lockmgr.LockKey(key) {
		return fmt.Errorf("session %s was issued for %s, not for %s", sessionID, lockKey, lockmgr.LockKey(key))
	}
	return nil
}

func runRenew(cmd *cobra.Command, args []string) error {
	if err := checkSession(args[0], args[1]); err != nil {
		return err
	}
	if err := lockMgr.Renew(cmd.Context(), args[0], lockmgr.Session{ID: args[1]}); err != nil {
		return fmt.Errorf("failed to renew lock: %w", err)
	}
	fmt.Println("renewed=true")
	return nil
}

func runRelease(cmd *cobra.Command, args []string) error {
	steal, _ := cmd.Flags().GetBool("steal")
	if len(args) < 2 && !steal {
		return fmt.Errorf("a session id is required unless --steal is set")
	}

	var session lockmgr.Session
	if len(args) == 2 {
		if err := checkSession(args[0], args[1]); err != nil {
			return err
		}
		session.ID = args[1]
	}
	if err := lockMgr.Release(cmd.Context(), args[0], session, steal); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	fmt.Println("released=true")
	return nil
}
