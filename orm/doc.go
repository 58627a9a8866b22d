/*
Package orm provides an easy to use db wrapper.

Break state space into prefixed sections called buckets. Each bucket holds
models of a single type, stored under a key made of the bucket name and the
model primary key. Buckets may declare secondary indexes and an id sequence,
so that models can be listed by any indexed value in ascending primary key
order.
*/
package orm
