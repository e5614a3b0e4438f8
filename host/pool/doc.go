// Package pool lends a bounded set of interpreters to concurrent callers.
//
// Admission is FIFO through a weighted semaphore whose available permits
// always equal the number of idle interpreters. Permits for busy
// interpreters and for vacant slots (an instance that could not be created
// or replaced) stay held, so waiters never wake up to an empty pool.
//
// Reset and Close retire the current generation. Waiters on a retired
// generation retry against the next one, or fail with PoolDisposedError
// after Close; interpreters still rented from it are closed when returned.
package pool
