package dstore

import (
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dDoc/lib/db"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// Result data of conditional commands
var (
	resultApplied    = []byte{1}
	resultNotApplied = []byte{0}
)

func boolResult(ok bool) []byte {
	if ok {
		return resultApplied
	}
	return resultNotApplied
}

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// KVStateMachine is a state machine implementation for Dragonboat RAFT
type KVStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.KVDB // the actual dataStorage
}

// CreateStateMaschineFactory returns a function that can be used by dragenboat to create a new standmaschine for a node host
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory
func CreateStateMaschineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  dbFactory(),
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding KVDB method.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	switch q.Type {
	case internal.QueryTGet:
		if !fsm.database.SupportsFeature(db.FeatureGet) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
		}
		val, ok := fsm.database.Get(q.Key, q.Now)
		return internal.QueryResult{
			Value: val,
			Ok:    ok,
		}, nil
	case internal.QueryTHas:
		if !fsm.database.SupportsFeature(db.FeatureHas) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
		}
		return fsm.database.Has(q.Key, q.Now), nil
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// Update handles write commands on the KVDB instance
// All write operations are serialized into []byte and are accessible via the entries struct
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()

	for idx, e := range entries {
		entries[idx].Result = fsm.apply(e.Cmd)
	}

	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("Statemashine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single serialized command
func (fsm *KVStateMachine) apply(data []byte) sm.Result {
	if len(data) == 0 {
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
	}

	cmd := internal.Command{}
	if err := cmd.Deserialize(data); err != nil {
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
	}

	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type))}
	}
	if !fsm.database.SupportsFeature(feat) {
		return sm.Result{Value: uint64(store.RetCUnsupportedOperation), Data: []byte(fmt.Sprintf("%s operation is not suported", cmd.Type))}
	}

	ok := sm.Result{Value: uint64(store.RetCSuccess)}
	switch cmd.Type {
	case internal.CommandTSet:
		fsm.database.Set(cmd.Key, cmd.Value, cmd.Now)
	case internal.CommandTSetE:
		fsm.database.SetE(cmd.Key, cmd.Value, cmd.Now, cmd.TTL)
	case internal.CommandTSetIfUnset:
		ok.Data = boolResult(fsm.database.SetEIfUnset(cmd.Key, cmd.Value, cmd.Now, cmd.TTL))
	case internal.CommandTCompareAndSwap:
		ok.Data = boolResult(fsm.database.CompareAndSwap(cmd.Key, cmd.Expected, cmd.Value, cmd.Now, cmd.TTL))
	case internal.CommandTDelete:
		fsm.database.Delete(cmd.Key)
	case internal.CommandTCollect:
		removed := fsm.database.GarbageCollect(cmd.Now)
		ok.Data = []byte(fmt.Sprintf("collected %d entries", removed))
	default:
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type))}
	}
	return ok
}

// PrepareSnapshot is not used. We don't need to prepare anything since we use fuzzy snapshotting
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a fuzzy db snapshot to the writer
func (fsm *KVStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return fmt.Errorf("the used KVDB implemantation does not supports Save() operations")
	}
	return fsm.database.Save(writer)
}

// RecoverFromSnapshot restores the db from a snapshot written by SaveSnapshot.
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("the used KVDB implemantation does not supports Load() operations")
	}
	return fsm.database.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *KVStateMachine) Close() error {
	return fsm.database.Close()
}
