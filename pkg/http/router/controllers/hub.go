package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/naviguide/pkg/datastructure"
)

// User is one websocket connection. it binds to a navigation session on its
// first frame and from then on feeds fixes in while the session's event
// stream flows out.
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub

	mu          sync.Mutex
	sessionID   string
	unsubscribe func()
}

func (u *User) readFrame() (*fixStreamFrame, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	frame := &fixStreamFrame{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// ConsumeFrame reads and handles one client frame: bind, or bind plus one
// location fix. navigation events are not answered here, they arrive through
// the session subscription.
func (u *User) ConsumeFrame() error {
	frame, err := u.readFrame()
	if err != nil {
		u.conn.Close()
		return err
	}

	if frame == nil {
		return nil
	}

	validate := validator.New()

	if err := validate.Struct(frame); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		errResp := envelope{"error": map[string]string{
			"code":    http.StatusText(http.StatusBadRequest),
			"message": fmt.Sprintf("validation error: %v", vvString),
		}}
		return u.write(errResp)
	}

	if err := u.bind(frame.SessionID); err != nil {
		errResp := envelope{"error": map[string]string{
			"code":    http.StatusText(http.StatusNotFound),
			"message": err.Error(),
		}}
		return u.write(errResp)
	}

	if frame.Fix == nil {
		return u.write(envelope{"data": map[string]string{
			"status":     "subscribed",
			"session_id": frame.SessionID,
		}})
	}

	if err := u.hub.navigationService.ConsumeFix(frame.SessionID, frame.Fix.ToLocationFix()); err != nil {
		errResp := envelope{"error": map[string]string{
			"code":    http.StatusText(http.StatusUnprocessableEntity),
			"message": err.Error(),
		}}
		return u.write(errResp)
	}
	return nil
}

// bind subscribes the connection to sessionID's event stream, replacing any
// previous subscription. rebinding to the same session is a no-op.
func (u *User) bind(sessionID string) error {
	u.mu.Lock()
	if u.sessionID == sessionID {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	unsubscribe, err := u.hub.navigationService.Subscribe(sessionID, u.deliverEvent)
	if err != nil {
		return err
	}

	u.releaseSubscription()
	u.mu.Lock()
	u.sessionID = sessionID
	u.unsubscribe = unsubscribe
	u.mu.Unlock()
	return nil
}

func (u *User) deliverEvent(ev datastructure.Event) {
	if err := u.write(envelope{"event": NewEventResponse(ev)}); err != nil {
		u.releaseSubscription()
		u.conn.Close()
	}
}

func (u *User) releaseSubscription() {
	u.mu.Lock()
	unsubscribe := u.unsubscribe
	u.unsubscribe = nil
	u.sessionID = ""
	u.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

type Hub struct {
	mu                sync.RWMutex
	seq               uint
	us                []*User
	ns                map[uint]*User
	navigationService NavigationService
}

func NewHub(navigationService NavigationService) *Hub {
	hub := &Hub{
		ns:                make(map[uint]*User),
		us:                make([]*User, 0),
		navigationService: navigationService,
	}

	return hub
}

func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	if _, ok := h.ns[user.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs

	h.mu.Unlock()

	user.releaseSubscription()
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := make([]*User, len(h.us))
	copy(users, h.us)
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
	}
}
