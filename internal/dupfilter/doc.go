// Package dupfilter answers "has this fingerprint been seen before".
//
// Three variants implement Filter:
//
//   - SetFilter keeps every item in memory and is exact. It is the default.
//   - BloomFilter keeps an in-process bloom filter sized for a capacity and
//     false positive rate. It never yields false negatives.
//   - RedisBloomFilter stores a bloom filter in a Redis server with the
//     RedisBloom module (BF.RESERVE, BF.ADD, BF.EXISTS). It must be connected
//     before use and disconnected afterwards.
//
// The probabilistic variants trade exactness for memory when the number of
// seen URLs is expected to be very large.
package dupfilter
