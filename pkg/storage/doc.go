// Package storage manages the transient working directory that holds
// downloaded frames between the download and encode stages.
//
// Frames are named img-NNN.jpg after their index in the selection, so the
// numbering can have gaps when frames are sampled. Writes go through a
// temporary file and an atomic rename; a failed download leaves nothing behind.
//
// Usage:
//
//	manager, err := storage.NewManager("images")
//	if err != nil {
//	    return err
//	}
//	if err := manager.Reset(); err != nil {
//	    return err
//	}
//	frame, err := manager.SaveFrame(body, 0)
package storage
