package browser

// hookJS installs the page-side registry under window.__chatoutline. Elements
// get a key on first sight that stays with them for the life of the page, so
// any snapshot node can be resolved back to its live element.
const hookJS = `
(token, panelID, highlightClass) => {
	const w = window;
	const prev = w.__chatoutline;
	if (prev && prev.token === token) return true;
	if (prev && typeof prev.teardown === 'function') {
		try { prev.teardown(); } catch (e) {}
	}

	const keys = new WeakMap();
	const refs = new Map();
	const prefix = Date.now().toString(36) + '-';
	let seq = 0;
	const events = [];
	const cleanups = [];

	const keyOf = (el) => {
		let k = keys.get(el);
		if (!k) {
			k = prefix + (++seq);
			keys.set(el, k);
			refs.set(k, new WeakRef(el));
		}
		return k;
	};
	const lookup = (k) => {
		if (!k) return null;
		const ref = refs.get(k);
		const el = ref && ref.deref();
		if (!el) {
			refs.delete(k);
			return null;
		}
		return el;
	};
	const push = (ev) => {
		if (events.length < 1000) events.push(ev);
	};

	let root = document.getElementById(panelID);
	if (!root) {
		root = document.createElement('div');
		root.id = panelID;
		const style = document.createElement('style');
		style.textContent =
			'.' + highlightClass + '{outline:2px solid #4c8bf5;outline-offset:4px;border-radius:6px;transition:outline-color .3s}' +
			'#' + panelID + ' button{position:fixed;right:16px;bottom:16px;z-index:2147483647;' +
			'padding:6px 12px;border-radius:16px;border:1px solid #ccc;background:#fff;cursor:pointer}' +
			'#' + panelID + '[data-open="true"] button{background:#4c8bf5;color:#fff}';
		const btn = document.createElement('button');
		btn.type = 'button';
		btn.textContent = 'Outline';
		root.appendChild(style);
		root.appendChild(btn);
		(document.body || document.documentElement).appendChild(root);
	}
	const onToggle = (ev) => {
		if (ev.target && ev.target.closest && ev.target.closest('#' + panelID + ' button')) {
			push({ type: 'toggle' });
		}
	};
	document.addEventListener('click', onToggle, true);
	cleanups.push(() => document.removeEventListener('click', onToggle, true));

	const onMessage = (ev) => {
		const d = ev.data;
		if (d && d.source === 'chatoutline' && typeof d.type === 'string') {
			push({ type: 'message', message: d.type });
		}
	};
	window.addEventListener('message', onMessage);
	cleanups.push(() => window.removeEventListener('message', onMessage));

	let observer = null;
	let scrollTarget = null;
	const onScroll = () => push({ type: 'scroll' });

	const api = {
		token,
		keyOf,
		lookup,
		drain() {
			return events.splice(0, events.length);
		},
		observe(k) {
			if (observer) observer.disconnect();
			const target = lookup(k) || document.body || document.documentElement;
			observer = new MutationObserver((mutations) => {
				let inPanel = false;
				for (const m of mutations) {
					const el = m.target && m.target.nodeType === 1 ? m.target : m.target && m.target.parentElement;
					if (el && el.closest && el.closest('#' + panelID)) {
						inPanel = true;
						break;
					}
				}
				push({ type: 'mutation', inPanel });
			});
			observer.observe(target, { childList: true, subtree: true, characterData: true });
			return true;
		},
		bindScroll(k) {
			const target = k ? lookup(k) : window;
			if (!target) return false;
			if (scrollTarget) scrollTarget.removeEventListener('scroll', onScroll);
			target.addEventListener('scroll', onScroll, { passive: true });
			scrollTarget = target;
			return true;
		},
		teardown() {
			if (observer) observer.disconnect();
			if (scrollTarget) scrollTarget.removeEventListener('scroll', onScroll);
			cleanups.forEach((f) => f());
		},
	};
	// Until the engine picks its own targets, watch the body and the window.
	api.observe('');
	api.bindScroll('');
	w.__chatoutline = api;
	return true;
}
`

// snapshotJS serializes the document into a compact tree. Element nodes carry
// their registry key; script-like elements keep their attributes but drop
// their contents.
const snapshotJS = `
() => {
	const api = window.__chatoutline;
	if (!api) return null;
	const opaque = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'IFRAME']);
	const walk = (el) => {
		const attrs = [];
		for (const a of Array.from(el.attributes || [])) attrs.push([a.name, a.value]);
		const out = { k: api.keyOf(el), t: el.localName || el.tagName.toLowerCase(), a: attrs, c: [] };
		if (opaque.has(el.tagName)) return out;
		for (const child of Array.from(el.childNodes)) {
			if (child.nodeType === 1) out.c.push(walk(child));
			else if (child.nodeType === 3 && child.data) out.c.push({ x: child.data });
		}
		return out;
	};
	return { host: location.host, url: location.href, root: walk(document.documentElement) };
}
`

const applyAttrsJS = `
(writes) => {
	const api = window.__chatoutline;
	if (!api) return 0;
	let n = 0;
	for (const [k, name, value] of writes) {
		const el = api.lookup(k);
		if (!el) continue;
		el.setAttribute(name, value);
		n++;
	}
	return n;
}
`

const observeJS = `(k) => { const api = window.__chatoutline; return !!api && api.observe(k); }`

const bindScrollJS = `(k) => { const api = window.__chatoutline; return !!api && api.bindScroll(k); }`

const teardownJS = `
(panelID) => {
	const api = window.__chatoutline;
	if (api) api.teardown();
	delete window.__chatoutline;
	const root = document.getElementById(panelID);
	if (root) root.remove();
	return true;
}
`

const drainJS = `() => { const api = window.__chatoutline; return api ? api.drain() : null; }`

const setOpenJS = `
(panelID, open) => {
	const root = document.getElementById(panelID);
	if (!root) return false;
	root.setAttribute('data-open', open ? 'true' : 'false');
	return true;
}
`

const topsJS = `
(ks) => {
	const api = window.__chatoutline;
	return ks.map((k) => {
		const el = api && api.lookup(k);
		if (!el || !el.isConnected) return null;
		return el.getBoundingClientRect().top;
	});
}
`

const headersJS = `
(panelID) => Array.from(document.querySelectorAll('header, [role="banner"]'))
	.filter((el) => !el.closest('#' + panelID))
	.map((el) => {
		const r = el.getBoundingClientRect();
		return { top: r.top, height: r.height, position: getComputedStyle(el).position };
	})
`

const scrollableAncestorJS = `
(k, panelID) => {
	const api = window.__chatoutline;
	let el = api && api.lookup(k);
	const scrollable = (el) => {
		if (!el || el === document.body || el === document.documentElement) return false;
		const oy = getComputedStyle(el).overflowY;
		if (!(oy === 'auto' || oy === 'scroll' || oy === 'overlay')) return false;
		return el.scrollHeight > el.clientHeight + 40;
	};
	while (el && el !== document.documentElement) {
		if (el.closest && el.closest('#' + panelID)) return '';
		if (scrollable(el)) return api.keyOf(el);
		el = el.parentElement;
	}
	return '';
}
`

const scrollMetricsJS = `
(k) => {
	const api = window.__chatoutline;
	if (!k) return { top: window.scrollY, height: document.documentElement.scrollHeight };
	const el = api && api.lookup(k);
	if (!el) return { top: 0, height: 0 };
	return { top: el.scrollTop, height: el.scrollHeight };
}
`

const scrollJS = `
(k, op, value, smooth) => {
	const api = window.__chatoutline;
	const target = k ? api && api.lookup(k) : window;
	if (!target) return false;
	const behavior = smooth ? 'smooth' : 'auto';
	if (op === 'by') target.scrollBy({ top: value, behavior });
	else target.scrollTo({ top: value, behavior });
	return true;
}
`

const scrollIntoViewJS = `
(k) => {
	const api = window.__chatoutline;
	const el = api && api.lookup(k);
	if (!el) return false;
	el.scrollIntoView({ behavior: 'smooth', block: 'start' });
	return true;
}
`

const highlightJS = `
(k, cls, on) => {
	const api = window.__chatoutline;
	const el = api && api.lookup(k);
	if (!el) return false;
	if (on) el.classList.add(cls);
	else el.classList.remove(cls);
	return true;
}
`
