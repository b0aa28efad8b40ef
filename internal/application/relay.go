package application

import "github.com/Thnoxs/localy-v1/internal/domain"

// relayUpload forwards an upload event to the host untouched. Interpreting
// progress and terminal kinds is the host's job.
func (s *Supervisor) relayUpload(ev domain.Event) {
	s.out.push(domain.StatusMessage(ev))
}
