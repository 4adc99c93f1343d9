package walpage

import (
	"time"
)

// run is the Manager's single worker goroutine. It owns pf exclusively
// for its entire lifetime: no other goroutine touches a pageFile's fields.
// Requests are drained in batches — whatever has accumulated in m.reqs by
// the time the previous batch finished flushing — giving an implicit
// group commit: one fsync serves every request that arrived during the
// previous flush, not one fsync per record.
func (m *Manager) run(pf *pageFile) {
	defer func() {
		pf.flush()
		pf.close()
		close(m.done)
	}()

	for {
		batch, ok := m.collect()
		if len(batch) > 0 {
			pf = m.processBatch(pf, batch)
		}
		if !ok {
			return
		}
	}
}

// collect blocks for at least one request (or shutdown), then drains
// whatever else is immediately available without blocking, forming one
// batch. It reports ok=false once closed has fired and no more requests
// are queued, signalling run to exit after flushing this final batch.
func (m *Manager) collect() ([]request, bool) {
	var batch []request

	select {
	case req := <-m.reqs:
		batch = append(batch, req)
	case <-m.closed:
		return m.drainRemaining(), false
	}

	for {
		select {
		case req := <-m.reqs:
			batch = append(batch, req)
		default:
			return batch, true
		}
	}
}

// drainRemaining collects any requests still queued at shutdown time so
// they are flushed rather than silently dropped.
func (m *Manager) drainRemaining() []request {
	var batch []request
	for {
		select {
		case req := <-m.reqs:
			batch = append(batch, req)
		default:
			return batch
		}
	}
}

// processBatch appends every request in the batch to the current page,
// rolling over as needed, then issues a single flush for the whole batch.
// It returns the page the worker should continue writing to, which
// differs from pf when a rollover happened mid-batch.
func (m *Manager) processBatch(pf *pageFile, batch []request) *pageFile {
	start := time.Now()

	for i := range batch {
		err := m.appendOne(&pf, batch[i].data)
		batch[i].done <- err
		if m.opts.Metrics != nil {
			m.opts.Metrics.RecordWalAppend(m.opts.Name, err == nil, time.Since(start))
		}
	}

	if err := pf.flush(); err != nil {
		m.log.Error("wal flush failed").Err(err).Send()
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.WalFlushesTotal.WithLabelValues(m.opts.Name).Inc()
	}
	return pf
}

// appendOne writes data to *pf, rolling to a new page per the three cases
// tracked against used vs PageSize on entry:
//
//  1. used+1 < PageSize: append and continue, page still has room.
//  2. used+1 == PageSize: append (this record exactly fills the page),
//     flush, then open the next page so the next append has somewhere
//     to land.
//  3. used == PageSize already on entry (a boundary left over from a
//     prior run, e.g. recovery resuming onto an already-full page):
//     flush, open the next page, and append there instead.
func (m *Manager) appendOne(pf **pageFile, data []byte) error {
	cur := *pf

	if cur.used == m.opts.PageSize {
		next, err := m.rollPage(cur)
		if err != nil {
			return err
		}
		*pf = next
		return next.append(data)
	}

	if err := cur.append(data); err != nil {
		return err
	}

	if cur.used == m.opts.PageSize {
		next, err := m.rollPage(cur)
		if err != nil {
			return err
		}
		*pf = next
	}

	return nil
}

// rollPage flushes and closes the current page, opening and returning
// the next one in sequence.
func (m *Manager) rollPage(cur *pageFile) (*pageFile, error) {
	next, err := openOrCreatePage(m.opts.Root, m.opts.Name, m.opts.PageSize, cur.index+1)
	if err != nil {
		return nil, err
	}
	if err := cur.flush(); err != nil {
		next.close()
		return nil, err
	}
	if err := cur.close(); err != nil {
		next.close()
		return nil, err
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.WalRolloversTotal.WithLabelValues(m.opts.Name).Inc()
	}
	return next, nil
}
