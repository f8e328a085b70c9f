package archive

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"wren/client"
	"wren/imap"
	"wren/internal/blobstorage"
	"wren/internal/conf"
)

// Archiver syncs accounts into blob storage.
type Archiver struct {
	store blobstorage.Store
	state *StateDB
	sync  conf.SyncConfig
}

// New creates an archiver.
func New(store blobstorage.Store, state *StateDB, syncCfg conf.SyncConfig) *Archiver {
	return &Archiver{store: store, state: state, sync: syncCfg}
}

// SyncAccount downloads every new message of the account. Folders sync
// concurrently, each on its own session; the server is never mutated.
func (a *Archiver) SyncAccount(ctx context.Context, acct conf.AccountConfig) (int, error) {
	folders := acct.Folders
	if len(folders) == 0 {
		discovered, err := a.discoverFolders(acct)
		if err != nil {
			return 0, err
		}
		folders = discovered
	}

	counts := make([]int, len(folders))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.sync.Parallelism)

	for i, folder := range folders {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := a.syncFolder(ctx, acct, folder)
			counts[i] = n
			if err != nil {
				return fmt.Errorf("folder %q: %w", folder, err)
			}
			return nil
		})
	}

	err := g.Wait()
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}

// discoverFolders lists all selectable mailboxes of the account.
func (a *Archiver) discoverFolders(acct conf.AccountConfig) ([]string, error) {
	s, err := a.connect(acct)
	if err != nil {
		return nil, err
	}
	defer s.End()

	tree, err := s.List("", "*")
	if err != nil {
		return nil, err
	}

	var names []string
	var walk func(prefix string, nodes map[string]*imap.MailboxNode)
	walk = func(prefix string, nodes map[string]*imap.MailboxNode) {
		for name, node := range nodes {
			full := name
			if prefix != "" {
				delim := node.Delimiter
				if delim == "" {
					delim = "/"
				}
				full = prefix + delim + name
			}
			if !hasAttribute(node.Attributes, "\\Noselect") {
				names = append(names, full)
			}
			walk(full, node.Children)
		}
	}
	walk("", tree)

	sort.Strings(names)
	return names, nil
}

func hasAttribute(attrs []string, want string) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

// syncFolder archives the new messages of one folder over its own session.
func (a *Archiver) syncFolder(ctx context.Context, acct conf.AccountConfig, folder string) (int, error) {
	s, err := a.connect(acct)
	if err != nil {
		return 0, err
	}
	defer s.End()

	box, err := s.OpenBox(folder, true)
	if err != nil {
		return 0, err
	}

	folderID, reset, err := a.state.EnsureFolder(acct.ID, folder, box.UIDValidity)
	if err != nil {
		return 0, err
	}
	if reset {
		log.Printf("archive: %s/%s: UIDVALIDITY changed, resyncing from scratch", acct.ID, folder)
	}

	uids, err := s.Search(nil)
	if err != nil {
		return 0, err
	}

	synced, err := a.state.SyncedUIDs(folderID)
	if err != nil {
		return 0, err
	}
	var newUIDs []uint32
	for _, uid := range uids {
		if !synced[uid] {
			newUIDs = append(newUIDs, uid)
		}
	}
	if len(newUIDs) == 0 {
		return 0, nil
	}

	log.Printf("archive: %s/%s: %d new of %d total", acct.ID, folder, len(newUIDs), len(uids))

	count := 0
	for start := 0; start < len(newUIDs); start += a.sync.BatchSize {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}

		end := start + a.sync.BatchSize
		if end > len(newUIDs) {
			end = len(newUIDs)
		}
		batch := newUIDs[start:end]

		msgs, err := s.FetchUID(imap.SeqSetFromUIDs(batch), imap.FetchOptions{
			Bodies: []string{""},
			Size:   true,
		})
		if err != nil {
			return count, err
		}

		for _, msg := range msgs {
			raw := msg.Part("")
			if raw == nil {
				continue
			}
			key := blobKey(acct.ID, folder, box.UIDValidity, msg.UID)
			if err := a.store.Put(ctx, key, raw); err != nil {
				return count, err
			}
			if err := a.state.MarkSynced(folderID, msg.UID, key); err != nil {
				return count, err
			}
			count++
		}
	}

	return count, nil
}

// connect opens an authenticated session for the account.
func (a *Archiver) connect(acct conf.AccountConfig) (*client.Session, error) {
	mode := client.TLSMode(acct.TLS)
	if acct.TLS == "" {
		mode = client.TLSImplicit
	}
	return client.Connect(client.Config{
		Host:        acct.Host,
		Port:        acct.Port,
		TLS:         mode,
		User:        acct.User,
		Password:    acct.Password,
		ConnTimeout: 30 * time.Second,
	})
}

// blobKey renders the stable storage key for one message.
func blobKey(accountID, folder string, uidValidity, uid uint32) string {
	return fmt.Sprintf("%s/%s/%d/%d.eml", accountID, folder, uidValidity, uid)
}
