// Package remote pushes generated manifests to remote hosts over SSH.
// Uploads go through SFTP with a write-then-rename so the remote manifest
// is never observed half-written, and the activation command can be run
// on the remote host after the push.
package remote
