// Package redisstore implements store.IStore on top of a redis server using go-redis.
//
// Keys expire natively (PX). CompareAndSwap with an expected value watches the key, compares
// the current value and writes inside MULTI/EXEC; a concurrent write aborts the
// transaction and is reported as a failed swap. Note that GetDBInfo counts every key of
// the redis database, not only the prefixed ones.
package redisstore
