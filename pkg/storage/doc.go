// Package storage manages the scratch files that carry a task's data between
// the collector, the report generator and the download handler.
//
// Files are written through a temporary file and an atomic rename, so a reader
// never observes a partially written document. Names embed the sanitized
// username and a random token:
//
//	{username}_{token}_reddit_full_data.md   collected document
//	response_output_{username}_{token}.md    generated report
//
// Usage:
//
//	manager, err := storage.NewManager(cfg.Storage.ScratchDir)
//	if err != nil {
//	    return err
//	}
//	token := storage.NewToken()
//	path, err := manager.WriteData("alice", token, document)
//	defer manager.Remove(path)
package storage
