// Package zookeeper runs the coordination service node of a session.
package zookeeper
