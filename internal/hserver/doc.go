// Package hserver runs one broker node of a session.
//
// Brokers reach the coordinator through MetastoreURI, the storage node through
// its admin endpoint and the store configuration in the shared data
// directory, and each other through the internal seed list. Clients connect
// to Address.ClientPort. When the security profile enables encryption, the
// broker serves TLS with the key material mounted from the fixture directory.
package hserver
